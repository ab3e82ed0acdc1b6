package engine

// Pwd returns the cached cwd path, maintained incrementally by Cd rather
// than recomputed by walking "..". up to the root on every call.
func (v *Volume) Pwd() string {
	return v.cwdPath
}
