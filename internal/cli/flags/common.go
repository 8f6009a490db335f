package flags

import "flag"

// AddRootFlag adds --root and -r flags for the project root.
func AddRootFlag(fs *flag.FlagSet) *string {
	root := fs.String("root", ".", "project root (directory or afs URL)")
	fs.StringVar(root, "r", ".", "project root (shorthand)")
	return root
}

// AddVerboseFlag adds --verbose and -v flags for verbose output.
func AddVerboseFlag(fs *flag.FlagSet) *bool {
	verbose := fs.Bool("verbose", false, "show detailed output")
	fs.BoolVar(verbose, "v", false, "show detailed output (shorthand)")
	return verbose
}

// AddConfigFlag adds --config and -c flags for the config file.
func AddConfigFlag(fs *flag.FlagSet) *string {
	cfg := fs.String("config", "", "config file (default: extdeps.jsonc/.json/.yaml in root)")
	fs.StringVar(cfg, "c", "", "config file (shorthand)")
	return cfg
}

// WasSet reports the names of the flags given on the command line.
func WasSet(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
