package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
	sitter "github.com/tree-sitter/go-tree-sitter"

	"umlizer/internal/logger"
	"umlizer/util"
)

// DefaultExclude lists globs skipped unless the caller overrides them.
var DefaultExclude = []string{
	"**/__pycache__/**",
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/.venv/**",
	"**/venv/**",
	"**/*_test.go",
}

// DefaultMaxFileSize bounds the files handed to the parser.
const DefaultMaxFileSize int64 = 2 << 20

type Options struct {
	// Include and Exclude are doublestar globs matched against the slash
	// separated path relative to the scan root. An empty Include accepts
	// every file.
	Include     []string
	Exclude     []string
	Languages   []Language
	Strict      bool
	Gitignore   bool
	MaxFileSize int64
}

type Scanner struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options) *Scanner {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &Scanner{opts: opts, logger: logger.ForComponent("scanner")}
}

// Scan validates root and returns a single-use sequence of declarations.
// Unreadable or unparsable files are yielded as *ScanError; in strict mode
// the first one ends the sequence.
func (s *Scanner) Scan(ctx context.Context, root string) (iter.Seq2[Declaration, error], error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &ScanError{Path: root, Err: err}
	}
	for _, pattern := range append(append([]string(nil), s.opts.Include...), s.opts.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &ScanError{Path: root, Err: err}
	}
	base := abs
	if !info.IsDir() {
		base = filepath.Dir(abs)
	}

	var consumed atomic.Bool
	return func(yield func(Declaration, error) bool) {
		if consumed.Swap(true) {
			yield(Declaration{}, ErrScanConsumed)
			return
		}
		w := &walk{
			Scanner: s,
			ctx:     ctx,
			root:    abs,
			base:    base,
			yield:   yield,
			grammar: make(map[string]*loaded),
		}
		defer w.close()
		if s.opts.Gitignore {
			w.loadIgnores()
		}
		w.run()
	}, nil
}

var errStop = errors.New("stop")

type ignoreFile struct {
	dir     string
	matcher *ignore.GitIgnore
}

// walk is the state of one iteration of a scan sequence.
type walk struct {
	*Scanner
	ctx     context.Context
	root    string
	base    string
	yield   func(Declaration, error) bool
	grammar map[string]*loaded
	ignores []ignoreFile

	files, decls, failures int
}

func (w *walk) close() {
	for _, l := range w.grammar {
		l.close()
	}
}

func (w *walk) loadIgnores() {
	dirs := []string{w.base}
	if gitRoot, ok := util.FindGitRoot(w.base); ok && gitRoot != w.base {
		dirs = append(dirs, gitRoot)
	}
	for _, dir := range dirs {
		m, err := ignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore"))
		if err != nil {
			continue
		}
		w.ignores = append(w.ignores, ignoreFile{dir: dir, matcher: m})
	}
}

func (w *walk) run() {
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := w.ctx.Err(); ctxErr != nil {
			w.yield(Declaration{}, ctxErr)
			return errStop
		}
		rel, relErr := filepath.Rel(w.base, p)
		if relErr != nil {
			rel = p
		}
		rel = filepath.ToSlash(rel)

		if err != nil {
			return w.fail(&ScanError{Path: rel, Err: err}, d)
		}
		if d.IsDir() {
			if p == w.root {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || w.prune(p, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !w.accept(p, rel) {
			return nil
		}
		return w.file(p, rel)
	})
	if err != nil && !errors.Is(err, errStop) {
		w.yield(Declaration{}, err)
		return
	}
	w.logger.Debug("scan finished", "root", w.root, "files", w.files, "declarations", w.decls, "errors", w.failures)
}

// fail yields a scan error and decides whether the walk goes on.
func (w *walk) fail(serr *ScanError, d fs.DirEntry) error {
	w.failures++
	if !w.yield(Declaration{}, serr) || w.opts.Strict {
		return errStop
	}
	if d != nil && d.IsDir() {
		return filepath.SkipDir
	}
	return nil
}

// prune skips directories whose contents every exclude or ignore rule
// would reject. Files are still checked individually in accept.
func (w *walk) prune(p, rel string) bool {
	probe := rel + "/_"
	for _, pattern := range w.opts.Exclude {
		if ok, _ := doublestar.Match(pattern, probe); ok {
			return true
		}
	}
	return w.ignored(p, true)
}

func (w *walk) accept(p, rel string) bool {
	g, ok := grammarFor(rel)
	if !ok || !w.wantLanguage(g.language) {
		return false
	}
	if len(w.opts.Include) > 0 && !matchAny(w.opts.Include, rel) {
		return false
	}
	if matchAny(w.opts.Exclude, rel) {
		return false
	}
	return !w.ignored(p, false)
}

func (w *walk) wantLanguage(lang Language) bool {
	if len(w.opts.Languages) == 0 {
		return true
	}
	for _, l := range w.opts.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

func (w *walk) ignored(p string, dir bool) bool {
	for _, ig := range w.ignores {
		rel, err := filepath.Rel(ig.dir, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		if dir {
			rel += "/"
		}
		if ig.matcher.MatchesPath(rel) {
			return true
		}
	}
	return false
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (w *walk) file(p, rel string) error {
	info, err := os.Stat(p)
	if err != nil {
		return w.fail(&ScanError{Path: rel, Err: err}, nil)
	}
	if info.Size() > w.opts.MaxFileSize {
		w.logger.Debug("skipping large file", "path", rel, "size", info.Size())
		return nil
	}
	src, err := os.ReadFile(p)
	if err != nil {
		return w.fail(&ScanError{Path: rel, Err: err}, nil)
	}
	w.files++

	decls, err := w.parse(rel, src)
	if err != nil {
		var serr *ScanError
		if !errors.As(err, &serr) {
			serr = &ScanError{Path: rel, Err: err}
		}
		return w.fail(serr, nil)
	}
	for _, d := range decls {
		w.decls++
		if !w.yield(d, nil) {
			return errStop
		}
	}
	return nil
}

func (w *walk) parse(rel string, src []byte) ([]Declaration, error) {
	g, _ := grammarFor(rel)
	l, ok := w.grammar[g.name]
	if !ok {
		var err error
		if l, err = g.open(); err != nil {
			return nil, err
		}
		w.grammar[g.name] = l
	}

	tree := l.parser.Parse(src, nil)
	if tree == nil {
		return nil, &ScanError{Path: rel, Err: errors.New("parser returned no tree")}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, &ScanError{Path: rel, Line: firstErrorLine(root), Err: ErrSyntax}
	}

	fc := &fileContext{
		lang:   g.language,
		rel:    rel,
		hash:   util.ContentHash(src),
		module: modulePath(rel, g.language),
		src:    src,
		root:   root,
	}
	return g.extract(fc, captureDefs(l.query, root, src)), nil
}

// captureDefs runs the grammar query and returns the @def nodes in
// document order.
func captureDefs(q *sitter.Query, root *sitter.Node, src []byte) []sitter.Node {
	names := q.CaptureNames()
	qc := sitter.NewQueryCursor()
	defer qc.Close()

	var defs []sitter.Node
	matches := qc.Matches(q, root, src)
	for m := matches.Next(); m != nil; m = matches.Next() {
		for _, c := range m.Captures {
			if names[c.Index] == "def" {
				defs = append(defs, c.Node)
			}
		}
	}
	return defs
}

// IsSource reports whether name has an extension some grammar parses.
func IsSource(name string) bool {
	_, ok := grammarFor(path.Base(name))
	return ok
}
