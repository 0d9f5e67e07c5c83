// Command dtree fits, applies and inspects decision tree classifiers stored
// as gob files, reading features and labels from .npy arrays.
//
//	dtree fit     -x X.npy -y y.npy -model tree.gob [-params p.json] [-criterion gini] ...
//	dtree predict -x X.npy -model tree.gob -out pred.npy [-proba] [-log]
//	dtree score   -x X.npy -y y.npy -model tree.gob
//	dtree info    -model tree.gob
//	dtree render  -model tree.gob -out tree.svg [-format svg] [-importances imp.png]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/unixpickle/essentials"

	"github.com/YuminosukeSato/treeml/pkg/errors"
	"github.com/YuminosukeSato/treeml/pkg/log"
)

const usage = `usage: dtree [global flags] <command> [flags]

commands:
  fit       train a tree and save it
  predict   write predicted labels or probabilities to a .npy file
  score     print the accuracy on a labelled set
  info      print a summary of a saved tree
  render    draw a saved tree with graphviz

global flags:
`

type command func(args []string, stdout io.Writer) error

var commands = map[string]command{
	"fit":     runFit,
	"predict": runPredict,
	"score":   runScore,
	"info":    runInfo,
	"render":  runRender,
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(2)
		}
		essentials.Die(fmt.Sprintf("dtree: %v", err))
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("dtree", flag.ContinueOnError)
	global.SetOutput(stderr)
	logLevel := global.String("log-level", "warn", "log level: debug, info, warn or error")
	logFormat := global.String("log-format", "console", "log format: console, json or cloud (slog JSON in Cloud Logging fields)")
	global.Usage = func() {
		fmt.Fprint(stderr, usage)
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return err
	}
	if err := setupLogging(stderr, *logLevel, *logFormat); err != nil {
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return flag.ErrHelp
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		global.Usage()
		return errors.Newf("unknown command %q", rest[0])
	}
	return cmd(rest[1:], stdout)
}

func setupLogging(w io.Writer, level, format string) error {
	lvl, err := log.ToLogLevel(level)
	if err != nil {
		return err
	}
	switch format {
	case "console":
		log.SetProvider(log.NewConsoleProvider(w, log.Level(lvl)))
	case "json":
		log.SetProvider(log.NewZerologProvider(w, log.Level(lvl)))
	case "cloud":
		return log.SetupLoggerTo(w, level)
	default:
		return errors.NewValidationError("log-format", "must be console, json or cloud", format)
	}
	return nil
}
