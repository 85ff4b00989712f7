// fluxnorm-validate checks workflow configuration files against the
// default task registry. It prints one line per file and exits 1 on
// the first invalid one, so it can gate configs in CI before they
// reach a beamline.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/beamline-data/fluxnorm/internal/version"
	"github.com/beamline-data/fluxnorm/internal/workflow"
)

func main() {
	list := flag.Bool("list", false, "List the registered task functions and exit")
	showVersion := flag.Bool("version", false, "Print build information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	reg := workflow.DefaultRegistry()
	if *list {
		for _, name := range reg.Names() {
			fmt.Println(name)
		}
		return
	}

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: fluxnorm-validate [-list] config.json [config.json ...]")
		os.Exit(1)
	}

	for _, path := range paths {
		cfg, err := workflow.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			os.Exit(1)
		}
		if err := cfg.Validate(reg); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("%s: ok (%d tasks)\n", path, len(cfg.Tasks))
	}
}
