package scanner

import (
	"fmt"
	"path"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// extractFunc turns the @def captures of one file into declarations.
type extractFunc func(fc *fileContext, defs []sitter.Node) []Declaration

type grammar struct {
	name     string
	language Language
	load     func() *sitter.Language
	extract  extractFunc
}

var grammars = map[string]*grammar{
	"python": {
		name:     "python",
		language: Python,
		load:     func() *sitter.Language { return sitter.NewLanguage(tree_sitter_python.Language()) },
		extract:  extractPython,
	},
	"typescript": {
		name:     "typescript",
		language: TypeScript,
		load:     func() *sitter.Language { return sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()) },
		extract:  extractECMAScript,
	},
	"tsx": {
		name:     "tsx",
		language: TypeScript,
		load:     func() *sitter.Language { return sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()) },
		extract:  extractECMAScript,
	},
	"javascript": {
		name:     "javascript",
		language: JavaScript,
		load:     func() *sitter.Language { return sitter.NewLanguage(tree_sitter_javascript.Language()) },
		extract:  extractECMAScript,
	},
	"go": {
		name:     "go",
		language: Go,
		load:     func() *sitter.Language { return sitter.NewLanguage(tree_sitter_go.Language()) },
		extract:  extractGo,
	},
}

var extensions = map[string]string{
	".py":  "python",
	".pyi": "python",
	".ts":  "typescript",
	".mts": "typescript",
	".cts": "typescript",
	".tsx": "tsx",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
	".go":  "go",
}

func grammarFor(file string) (*grammar, bool) {
	name, ok := extensions[strings.ToLower(path.Ext(file))]
	if !ok {
		return nil, false
	}
	return grammars[name], true
}

// loaded holds the parser and compiled query of one grammar for the
// lifetime of a scan.
type loaded struct {
	parser *sitter.Parser
	query  *sitter.Query
}

func (l *loaded) close() {
	if l.query != nil {
		l.query.Close()
	}
	if l.parser != nil {
		l.parser.Close()
	}
}

func (g *grammar) open() (*loaded, error) {
	lang := g.load()
	parser := sitter.NewParser()
	if err := parser.SetLanguage(lang); err != nil {
		parser.Close()
		return nil, fmt.Errorf("load %s grammar: %w", g.name, err)
	}
	query, qerr := sitter.NewQuery(lang, Queries[g.name])
	if qerr != nil {
		parser.Close()
		return nil, fmt.Errorf("compile %s query: %v", g.name, qerr)
	}
	return &loaded{parser: parser, query: query}, nil
}

// modulePath derives the dotted module of a slash separated relative file.
func modulePath(rel string, lang Language) string {
	noExt := strings.TrimSuffix(rel, path.Ext(rel))
	switch lang {
	case Python:
		if path.Base(noExt) == "__init__" {
			noExt = path.Dir(noExt)
		}
	case TypeScript, JavaScript:
		if path.Base(noExt) == "index" && path.Dir(noExt) != "." {
			noExt = path.Dir(noExt)
		}
	case Go:
		noExt = path.Dir(rel)
	}
	if noExt == "." {
		return ""
	}
	return strings.ReplaceAll(noExt, "/", ".")
}
