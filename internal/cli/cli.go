package cli

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mehmetkoksal-w/extdeps/internal/analysis"
	"github.com/mehmetkoksal-w/extdeps/internal/cache"
	"github.com/mehmetkoksal-w/extdeps/internal/cli/flags"
	"github.com/mehmetkoksal-w/extdeps/internal/config"
	"github.com/mehmetkoksal-w/extdeps/internal/logger"
	"github.com/mehmetkoksal-w/extdeps/internal/model"
	"github.com/mehmetkoksal-w/extdeps/internal/provider"
	"github.com/mehmetkoksal-w/extdeps/internal/resolve"
	"github.com/mehmetkoksal-w/extdeps/schemas"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Run dispatches a subcommand.
func Run(args []string) error {
	if len(args) == 0 {
		return usage()
	}
	switch args[0] {
	case "version", "--version":
		return cmdVersion()
	case "resolve":
		return cmdResolve(args[1:])
	case "analyze":
		return cmdAnalyze(args[1:])
	case "validate":
		return cmdValidate(args[1:])
	case "runs":
		return cmdRuns(args[1:])
	case "help", "-h", "--help":
		return usage()
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func usage() error {
	fmt.Fprintln(stdout, `extdeps commands: resolve | analyze | validate | runs | version

Examples:
  extdeps resolve --entry app.js --provided ext/ext-dev.js --path myapp=app --path Ext=ext/src
  extdeps resolve --config extdeps.jsonc --json
  extdeps resolve -r mem://localhost/project --entry app.js
  extdeps analyze app/view/Main.js
  extdeps validate extdeps.jsonc
  extdeps validate --schema > extdeps.schema.json
  extdeps runs --cache .extdeps/cache.db --limit 5`)
	return nil
}

// resolveFlags are shared by resolve and analyze.
type resolveFlags struct {
	fs        *flag.FlagSet
	root      *string
	config    *string
	verbose   *bool
	entry     flags.ListFlag
	provided  flags.ListFlag
	exclude   flags.ListFlag
	skipParse flags.ListFlag
	paths     flags.PairFlag
	aliases   flags.PairFlag
	optimize  flags.BoolFlag
	encoding  *string
	namespace *string
	cachePath *string
	strict    *bool
	asJSON    *bool
	printSrc  *bool
}

func newResolveFlags(name string) *resolveFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &resolveFlags{fs: fs}
	f.root = flags.AddRootFlag(fs)
	f.config = flags.AddConfigFlag(fs)
	f.verbose = flags.AddVerboseFlag(fs)
	fs.Var(&f.entry, "entry", "entry file, repeatable")
	fs.Var(&f.provided, "provided", "file loaded independently, repeatable")
	fs.Var(&f.exclude, "exclude", "class name glob to ignore, repeatable")
	fs.Var(&f.skipParse, "skip-parse", "file glob to include without parsing, repeatable")
	fs.Var(&f.paths, "path", "prefix=folder resolve rule, repeatable")
	fs.Var(&f.aliases, "alias", "from=to class alias, repeatable")
	fs.Var(&f.optimize, "optimize", "neutralize requires/uses and alias registrations in sources")
	f.encoding = fs.String("encoding", "", "source encoding (default utf-8)")
	f.namespace = fs.String("namespace", "", "framework namespace (default Ext)")
	f.cachePath = fs.String("cache", "", "sqlite analysis cache file")
	f.strict = fs.Bool("strict", false, "fail when any warning was reported")
	f.asJSON = fs.Bool("json", false, "print descriptors as JSON")
	f.printSrc = fs.Bool("src", false, "print the (rewritten) source instead of the descriptor")
	return f
}

// options loads the config file, if any, and applies the flags over it.
func (f *resolveFlags) options() (*config.Options, error) {
	set := flags.WasSet(f.fs)
	cfgPath := *f.config
	if cfgPath == "" && !strings.Contains(*f.root, "://") {
		cfgPath = config.Find(*f.root)
	}

	o := &config.Options{}
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		o = loaded
	}

	if set["root"] || set["r"] || o.Root == "" {
		o.Root = *f.root
	}
	o.Entry = append(o.Entry, f.entry...)
	o.Provided = append(o.Provided, f.provided...)
	o.ExcludeClasses = append(o.ExcludeClasses, f.exclude...)
	o.SkipParse = append(o.SkipParse, f.skipParse...)
	if len(f.paths) > 0 {
		given := model.NewMultiMap()
		for _, p := range f.paths {
			given.Add(p.Key, p.Value)
		}
		o.Resolve.Path.Override(given)
	}
	if len(f.aliases) > 0 && o.Resolve.Alias == nil {
		o.Resolve.Alias = map[string]string{}
	}
	for _, a := range f.aliases {
		o.Resolve.Alias[a.Key] = a.Value
	}
	if f.optimize.WasSet {
		o.OptimizeSource = f.optimize.Value
	}
	if *f.encoding != "" {
		o.Encoding = *f.encoding
	}
	if *f.namespace != "" {
		if err := flags.ValidateNamespace(*f.namespace); err != nil {
			return nil, err
		}
		o.Namespace = *f.namespace
	}
	if *f.cachePath != "" {
		o.Cache = *f.cachePath
	}
	if *f.verbose {
		o.Verbose = true
	}
	o.ApplyDefaults()
	return o, nil
}

// session holds what a command needs to run the resolver.
type session struct {
	opts     resolve.Options
	recorder *logger.Recorder
	store    *cache.Store
}

func openSession(o *config.Options) (*session, error) {
	if o.Verbose {
		logger.SetLevel(logger.LevelDebug)
	}
	s := &session{recorder: &logger.Recorder{}}
	s.opts = o.ResolveOptions()

	p, err := provider.NewCached(o.Provider(), provider.DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	s.opts.Provider = p
	s.opts.Sink = logger.Tee(logger.NewConsole(stderr, o.Verbose), s.recorder)

	if o.Cache != "" {
		store, err := cache.Open(o.Cache)
		if err != nil {
			return nil, fmt.Errorf("open cache %s: %w", o.Cache, err)
		}
		s.store = store
		s.opts.Cache = store
	}
	return s, nil
}

func (s *session) close() {
	if s.store != nil {
		s.store.Close()
	}
}

func cmdResolve(args []string) error {
	f := newResolveFlags("resolve")
	if err := f.fs.Parse(args); err != nil {
		return err
	}
	o, err := f.options()
	if err != nil {
		return err
	}
	if err := o.Check(); err != nil {
		return err
	}
	s, err := openSession(o)
	if err != nil {
		return err
	}
	defer s.close()

	var run *cache.Run
	if s.store != nil {
		if run, err = s.store.BeginRun(o.Root); err != nil {
			return err
		}
	}
	logger.Debug("resolving %d entries from %s", len(o.Entry), o.Root)
	files, resolveErr := resolve.Resolve(s.opts)
	if run != nil {
		if err := s.store.EndRun(run, len(files), resolveErr); err != nil {
			logger.Info("record run: %v", err)
		}
		logger.Debug("run %s: %d cache hits, %d misses", run.ID, run.Hits, run.Misses)
	}
	if resolveErr != nil {
		return resolveErr
	}

	if *f.asJSON {
		if err := writeJSON(files); err != nil {
			return err
		}
	} else {
		for _, d := range files {
			fmt.Fprintln(stdout, d.Path)
		}
	}
	if *f.strict && s.recorder.WarningCount() > 0 {
		return fmt.Errorf("%d warnings reported", s.recorder.WarningCount())
	}
	return nil
}

func cmdAnalyze(args []string) error {
	f := newResolveFlags("analyze")
	if err := f.fs.Parse(args); err != nil {
		return err
	}
	if f.fs.NArg() != 1 {
		return errors.New("analyze: expected exactly one file")
	}
	o, err := f.options()
	if err != nil {
		return err
	}
	if !provider.ValidEncoding(o.Encoding) {
		return fmt.Errorf("unsupported encoding %q", o.Encoding)
	}
	s, err := openSession(o)
	if err != nil {
		return err
	}
	defer s.close()

	filePath := f.fs.Arg(0)
	if !strings.Contains(o.Root, "://") && filepath.IsAbs(filePath) {
		if rel, err := filepath.Rel(o.Root, filePath); err == nil && !strings.HasPrefix(rel, "..") {
			filePath = rel
		}
	}
	d, err := resolve.AnalyzeFile(filePath, s.opts)
	if errors.Is(err, analysis.ErrSkip) {
		s.opts.Sink.Warn("File is no class source: " + filePath)
		d, err = model.Placeholder(filePath), nil
	}
	if err != nil {
		return err
	}
	if *f.printSrc {
		fmt.Fprint(stdout, d.Src)
		return nil
	}
	return writeJSON(d)
}

func cmdValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := flags.AddRootFlag(fs)
	printSchema := fs.Bool("schema", false, "print the config JSON schema instead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *printSchema {
		docs, err := schemas.List()
		if err != nil {
			return err
		}
		_, err = stdout.Write(docs[schemas.Config])
		return err
	}
	path := fs.Arg(0)
	if path == "" {
		path = config.Find(*root)
	}
	if path == "" {
		return fmt.Errorf("validate: no config file found in %s", *root)
	}
	if err := config.Validate(path); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s is valid\n", path)
	return nil
}

func cmdRuns(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := flags.AddRootFlag(fs)
	cfgPath := flags.AddConfigFlag(fs)
	cachePath := fs.String("cache", "", "sqlite analysis cache file")
	limit := fs.Int("limit", 10, "number of runs to show")
	asJSON := fs.Bool("json", false, "print runs as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dbPath := *cachePath
	if dbPath == "" {
		path := *cfgPath
		if path == "" {
			path = config.Find(*root)
		}
		if path != "" {
			o, err := config.Load(path)
			if err != nil {
				return err
			}
			dbPath = o.Cache
		}
	}
	if dbPath == "" {
		return errors.New("runs: no cache configured")
	}

	store, err := cache.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open cache %s: %w", dbPath, err)
	}
	defer store.Close()
	runs, err := store.Runs(*limit)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(runs)
	}
	for _, r := range runs {
		status := "ok"
		if r.CompletedAt.IsZero() {
			status = "incomplete"
		} else if r.Error != "" {
			status = "error: " + r.Error
		}
		fmt.Fprintf(stdout, "%s  %s  %s  files=%d hits=%d misses=%d  %s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Root, r.Files, r.Hits, r.Misses, status)
	}
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
