package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/dargueta/ext2shell/engine"
)

func main() {
	app := cli.App{
		Name:      "ext2shell",
		Usage:     "Interactively browse and edit an ext2 filesystem image",
		ArgsUsage: "IMAGE_FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "enable debug logging"},
			&cli.BoolFlag{Name: "compressed", Usage: "image is gzip+RLE8 packed; recompress on exit"},
		},
		Action: runShell,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func runShell(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected exactly one argument: the path to an ext2 image", 1)
	}

	logger := logrus.New()
	if c.Bool("verbose") {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	openFn := engine.Open
	if c.Bool("compressed") {
		openFn = engine.OpenCompressed
	}

	vol, err := openFn(c.Args().Get(0))
	if err != nil {
		return cli.Exit(fmt.Sprintf("couldn't open image: %s", err.Error()), 1)
	}
	vol.Logger = logger
	defer vol.Close()

	return repl(vol, os.Stdin, os.Stdout)
}

// repl runs the line-oriented command loop: it reads one command per line,
// dispatches it, prints its result or error, and loops until EOF or a
// quit/exit command.
func repl(vol *engine.Volume, in *os.File, out *os.File) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprintf(out, "ext2shell:[%s:%s] $ ", vol.ImageBasename(), vol.Pwd())
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		if cmd == "quit" || cmd == "exit" {
			return nil
		}

		if err := dispatch(vol, out, cmd, args); err != nil {
			fmt.Fprintf(out, "%s: %s\n", cmd, err.Error())
		}
	}
}

func dispatch(vol *engine.Volume, out *os.File, cmd string, args []string) error {
	switch cmd {
	case "info":
		if len(args) == 1 && args[0] == "--csv" {
			return vol.InfoCSV(out)
		}
		return vol.Info(out)

	case "ls":
		target := ""
		if len(args) > 0 {
			target = args[0]
		}
		entries, err := vol.Ls(target)
		if err != nil {
			return err
		}
		engine.PrintLs(out, entries)
		return nil

	case "cat":
		if len(args) != 1 {
			return usageError("cat FILE")
		}
		data, err := vol.Cat(args[0])
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err

	case "attr":
		if len(args) != 1 {
			return usageError("attr PATH")
		}
		a, err := vol.Attr(args[0])
		if err != nil {
			return err
		}
		engine.PrintAttr(out, a)
		return nil

	case "pwd":
		fmt.Fprintln(out, vol.Pwd())
		return nil

	case "cd":
		target := ""
		if len(args) > 0 {
			target = args[0]
		}
		return vol.Cd(target)

	case "touch":
		if len(args) != 1 {
			return usageError("touch PATH")
		}
		return vol.Touch(args[0])

	case "mkdir":
		if len(args) != 1 {
			return usageError("mkdir PATH")
		}
		return vol.Mkdir(args[0])

	case "rm":
		if len(args) != 1 {
			return usageError("rm PATH")
		}
		return vol.Rm(args[0])

	case "rmdir":
		if len(args) != 1 {
			return usageError("rmdir PATH")
		}
		return vol.Rmdir(args[0])

	case "rename":
		if len(args) != 2 {
			return usageError("rename PATH NEWNAME")
		}
		return vol.Rename(args[0], args[1])

	case "mv":
		if len(args) != 2 {
			return usageError("mv SRC DST")
		}
		return vol.Mv(args[0], args[1])

	case "cp":
		if len(args) != 2 {
			return usageError("cp SRC DST")
		}
		return vol.Cp(args[0], args[1])

	default:
		return usageError(fmt.Sprintf("unrecognized command %q", cmd))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("usage: %s", msg)
}
