package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jsdx761/nexus/internal/registry"
	"github.com/jsdx761/nexus/internal/version"
)

const defaultDB = "data/aircraft.db"

func main() {
	flag.Usage = func() { printUsage(os.Stderr) }
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err := run(flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "nexus-registry: %v\n", err)
		os.Exit(1)
	}
}

// run executes one subcommand and writes its output to out.
func run(command string, args []string, out io.Writer) error {
	switch command {
	case "import":
		return handleImport(args, out)
	case "lookup":
		return handleLookup(args, out)
	case "version":
		return handleVersion(args, out)
	case "help":
		printUsage(out)
		return nil
	}
	printUsage(out)
	return fmt.Errorf("unknown command: %s", command)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `nexus-registry - manage the aircraft registry used by nexus

Usage: nexus-registry <command> [options]

Commands:
  import <csv>      Import icao24,manufacturer,icaoDescription,owner rows
  lookup <icao24>   Show the registry entry of a transponder
  version           Show the schema version and build
  help              Show this help message

Common Flags:
  --db <file>       Registry database (default data/aircraft.db)`)
}

func openStore(path string) (*registry.Store, error) {
	s, err := registry.OpenStore(path)
	if err != nil {
		return nil, err
	}
	if err := s.MigrateUp(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func handleImport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	dbPath := fs.String("db", defaultDB, "Registry database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("import needs exactly one csv file")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	s, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.ImportCSV(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %d aircraft, %d in %s\n", n, s.Len(), *dbPath)
	return nil
}

func handleLookup(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	dbPath := fs.String("db", defaultDB, "Registry database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("lookup needs exactly one transponder")
	}

	s, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	e, ok := s.Lookup(fs.Arg(0))
	if !ok {
		return fmt.Errorf("%s not found", fs.Arg(0))
	}
	fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", e.Transponder, e.Manufacturer, e.ICAODescription, e.Owner)
	return nil
}

func handleVersion(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	dbPath := fs.String("db", "", "Registry database to report the schema version of")
	if err := fs.Parse(args); err != nil {
		return err
	}
	fmt.Fprintf(out, "nexus-registry %s\n", version.String())
	if *dbPath == "" {
		return nil
	}

	s, err := registry.OpenStore(*dbPath)
	if err != nil {
		return err
	}
	defer s.Close()
	v, dirty, err := s.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "schema version %d (dirty=%t)\n", v, dirty)
	return nil
}
