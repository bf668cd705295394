package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlizer/internal/graph"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func collect(t *testing.T, s *Scanner, root string) ([]Declaration, []error) {
	t.Helper()
	seq, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	var decls []Declaration
	var errs []error
	for d, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		decls = append(decls, d)
	}
	return decls, errs
}

func byName(decls []Declaration) map[string]Declaration {
	out := make(map[string]Declaration, len(decls))
	for _, d := range decls {
		out[d.QualifiedName()] = d
	}
	return out
}

func field(t *testing.T, d Declaration, name string) Field {
	t.Helper()
	for _, f := range d.Fields {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("%s has no field %q", d.Name, name)
	return Field{}
}

func method(t *testing.T, d Declaration, name string) graph.Method {
	t.Helper()
	for _, m := range d.Methods {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("%s has no method %q", d.Name, name)
	return graph.Method{}
}

func TestScanMissingRoot(t *testing.T) {
	_, err := New(Options{}).Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	var serr *ScanError
	require.ErrorAs(t, err, &serr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestScanRejectsInvalidGlob(t *testing.T) {
	_, err := New(Options{Include: []string{"src/[a"}}).Scan(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestScanIsSingleUse(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "class A:\n    pass\n"})
	seq, err := New(Options{}).Scan(context.Background(), root)
	require.NoError(t, err)

	n := 0
	for _, err := range seq {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 1, n)

	var second []error
	for _, err := range seq {
		second = append(second, err)
	}
	require.Len(t, second, 1)
	assert.ErrorIs(t, second[0], ErrScanConsumed)
}

func TestScanPythonInheritance(t *testing.T) {
	root := writeTree(t, map[string]string{
		"shapes.py": "class A:\n    pass\n\nclass B(A):\n    pass\n",
	})
	decls, errs := collect(t, New(Options{}), root)
	require.Empty(t, errs)
	require.Len(t, decls, 2)

	got := byName(decls)
	assert.Empty(t, got["shapes.A"].Bases)
	assert.Equal(t, []string{"A"}, got["shapes.B"].Bases)
	assert.Equal(t, Python, got["shapes.B"].Language)
	assert.Equal(t, 4, got["shapes.B"].Line)
	assert.NotEmpty(t, got["shapes.B"].FileHash)
}

func TestScanPythonMembers(t *testing.T) {
	root := writeTree(t, map[string]string{
		"shop/__init__.py": "",
		"shop/order.py": `from datetime import datetime
from typing import List, Optional
from .user import User, Address
from . import payment as pay


class Order:
    count: int = 0

    def __init__(self, order_id: int, user: User, address: Address):
        self.order_id: int = order_id
        self.user = user
        self.address: Address = address
        self.products: List[Product] = []
        self.order_date: datetime = datetime.now()
        self._ledger = Ledger()
        self.__secret = None

    def add_product(self, product: Product) -> None:
        self.products.append(product)

    @staticmethod
    def parse(raw: str) -> "Order":
        pass

    @property
    def total(self) -> float:
        return 0.0

    @total.setter
    def total(self, value: float) -> None:
        pass

    def __repr__(self) -> str:
        return "Order"

    class Line:
        qty: int
`,
	})
	decls, errs := collect(t, New(Options{}), root)
	require.Empty(t, errs)

	got := byName(decls)
	order, ok := got["shop.order.Order"]
	require.True(t, ok)

	assert.Equal(t, "int", field(t, order, "count").Type)
	assert.Equal(t, "User", field(t, order, "user").Type)
	assert.Equal(t, "List[Product]", field(t, order, "products").Type)
	assert.False(t, field(t, order, "order_date").Owned)
	ledger := field(t, order, "_ledger")
	assert.True(t, ledger.Owned)
	assert.Equal(t, "Ledger", ledger.Type)
	assert.Equal(t, graph.Protected, ledger.Visibility)
	assert.Equal(t, graph.Private, field(t, order, "__secret").Visibility)
	assert.Equal(t, "float", field(t, order, "total").Type)

	add := method(t, order, "add_product")
	assert.Equal(t, []graph.Parameter{{Name: "product", Type: "Product"}}, add.Parameters)
	assert.Equal(t, "None", add.ReturnType)
	parse := method(t, order, "parse")
	assert.True(t, parse.Static)
	assert.Equal(t, []graph.Parameter{{Name: "raw", Type: "str"}}, parse.Parameters)
	for _, m := range order.Methods {
		assert.NotEqual(t, "__repr__", m.Name)
		assert.NotEqual(t, "total", m.Name)
	}

	_, ok = got["shop.order.Order.Line"]
	assert.True(t, ok, "nested classes are qualified by their parent")

	assert.Contains(t, order.Imports, Import{Module: "shop.user", Name: "User"})
	assert.Contains(t, order.Imports, Import{Module: "shop", Name: "payment", Alias: "pay"})
	assert.Contains(t, order.Imports, Import{Module: "typing", Name: "Optional"})
}

func TestScanPythonKinds(t *testing.T) {
	root := writeTree(t, map[string]string{
		"kinds.py": `from abc import ABC, ABCMeta, abstractmethod
from enum import Enum
from typing import Protocol, Generic, TypeVar

T = TypeVar("T")

class Color(Enum):
    RED = 1

class Shape(ABC):
    @abstractmethod
    def area(self) -> float: ...

class Meta(metaclass=ABCMeta):
    pass

class Drawable(Protocol):
    def draw(self) -> None: ...

class Box(Generic[T], Shape):
    pass

def factory():
    class Local:
        pass
    return Local
`,
	})
	decls, errs := collect(t, New(Options{}), root)
	require.Empty(t, errs)
	got := byName(decls)

	assert.Equal(t, graph.KindEnum, got["kinds.Color"].Kind)
	assert.True(t, got["kinds.Shape"].Abstract)
	assert.Empty(t, got["kinds.Shape"].Bases)
	assert.True(t, method(t, got["kinds.Shape"], "area").Abstract)
	assert.True(t, got["kinds.Meta"].Abstract)
	assert.Equal(t, graph.KindInterface, got["kinds.Drawable"].Kind)
	assert.Equal(t, []string{"Shape"}, got["kinds.Box"].Bases)
	_, ok := got["kinds.Local"]
	assert.False(t, ok)
}

func TestScanTypeScript(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/models/index.ts": `export * from "./user";`,
		"src/models/order.ts": `import { User as Customer } from "./user";
import * as billing from "../billing/index";
import Ledger from "ledger/core";

export interface Priced extends Named {
  price: number;
  total(discount?: number): number;
}

export enum Status { Open, Closed = "closed" }

export abstract class Base {
  protected abstract validate(): boolean;
}

export class Order extends Base implements Priced {
  private items: Item[] = [];
  static count = 0;
  #secret = 1;
  price: number;
  ledger = new Ledger();

  constructor(private readonly customer: Customer, note: string) {
    super();
    this.history = new History<string>();
  }

  get label(): string { return ""; }
  set label(v: string) {}

  total(discount?: number): number { return 0; }
  protected validate(): boolean { return true; }
}
`,
	})
	decls, errs := collect(t, New(Options{}), root)
	require.Empty(t, errs)
	got := byName(decls)

	priced := got["src.models.order.Priced"]
	assert.Equal(t, graph.KindInterface, priced.Kind)
	assert.Equal(t, []string{"Named"}, priced.Bases)
	assert.Equal(t, "number", field(t, priced, "price").Type)

	status := got["src.models.order.Status"]
	assert.Equal(t, graph.KindEnum, status.Kind)
	require.Len(t, status.Fields, 2)
	assert.Equal(t, "Open", status.Fields[0].Name)
	assert.Equal(t, "Closed", status.Fields[1].Name)

	base := got["src.models.order.Base"]
	assert.True(t, base.Abstract)
	assert.True(t, method(t, base, "validate").Abstract)

	order := got["src.models.order.Order"]
	assert.Equal(t, []string{"Base", "Priced"}, order.Bases)
	assert.Equal(t, graph.Private, field(t, order, "items").Visibility)
	assert.Equal(t, "Item[]", field(t, order, "items").Type)
	assert.True(t, field(t, order, "count").Static)
	assert.Equal(t, graph.Private, field(t, order, "#secret").Visibility)
	assert.True(t, field(t, order, "ledger").Owned)
	assert.Equal(t, "Ledger", field(t, order, "ledger").Type)
	assert.Equal(t, "Customer", field(t, order, "customer").Type)
	history := field(t, order, "history")
	assert.True(t, history.Owned)
	assert.Equal(t, "History", history.Type)
	assert.Equal(t, "string", field(t, order, "label").Type)

	total := method(t, order, "total")
	assert.Equal(t, []graph.Parameter{{Name: "discount?", Type: "number"}}, total.Parameters)
	assert.Equal(t, "number", total.ReturnType)
	assert.Equal(t, graph.Protected, method(t, order, "validate").Visibility)

	assert.Contains(t, order.Imports, Import{Module: "src.models.user", Name: "User", Alias: "Customer"})
	assert.Contains(t, order.Imports, Import{Module: "src.billing", Alias: "billing"})
	assert.Contains(t, order.Imports, Import{Module: "ledger.core", Name: "Ledger"})
}

func TestScanJavaScript(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.js": `import { Engine } from "./engine.js";

class Car extends Vehicle {
  wheels = 4;
  #vin;
  constructor(engine) {
    this.engine = engine;
    this.radio = new Radio();
  }
  drive(speed, ...rest) {}
}
`,
	})
	decls, errs := collect(t, New(Options{}), root)
	require.Empty(t, errs)
	got := byName(decls)

	car := got["app.Car"]
	assert.Equal(t, JavaScript, car.Language)
	assert.Equal(t, []string{"Vehicle"}, car.Bases)
	assert.Equal(t, graph.Private, field(t, car, "#vin").Visibility)
	assert.True(t, field(t, car, "radio").Owned)
	assert.False(t, field(t, car, "engine").Owned)
	drive := method(t, car, "drive")
	require.Len(t, drive.Parameters, 2)
	assert.Equal(t, "speed", drive.Parameters[0].Name)
	assert.Contains(t, car.Imports, Import{Module: "engine", Name: "Engine"})
}

func TestScanGo(t *testing.T) {
	root := writeTree(t, map[string]string{
		"store/store.go": `package store

import (
	"context"
	sq "database/sql"
)

type Kind int

const (
	KindA Kind = iota
	KindB
	other = 3
)

type Reader interface {
	io.Closer
	Read(ctx context.Context, id string) (*Record, error)
}

type Store struct {
	Base
	*Logger
	db      *sq.DB
	records []Record
	byID    map[string]Record
	onEvent func(Record)
}

type Option func(*Store)

func (s *Store) Get(ctx context.Context, ids ...string) ([]Record, error) {
	type local struct{}
	return nil, nil
}
`,
		"store/store_test.go": "package store\n\ntype fake struct{}\n",
	})
	decls, errs := collect(t, New(Options{Exclude: DefaultExclude}), root)
	require.Empty(t, errs)

	var names []string
	for _, d := range decls {
		names = append(names, d.Name)
	}
	assert.ElementsMatch(t, []string{"Kind", "Reader", "Store", "Store", "Option"}, names)

	got := byName(decls)
	kind := got["store.Kind"]
	assert.Equal(t, graph.KindEnum, kind.Kind)
	require.Len(t, kind.Fields, 2)
	assert.Equal(t, "KindB", kind.Fields[1].Name)

	reader := got["store.Reader"]
	assert.Equal(t, graph.KindInterface, reader.Kind)
	assert.Equal(t, []string{"io.Closer"}, reader.Bases)
	read := method(t, reader, "Read")
	assert.Equal(t, "(*Record, error)", read.ReturnType)
	assert.Equal(t, []graph.Parameter{{Name: "ctx", Type: "context.Context"}, {Name: "id", Type: "string"}}, read.Parameters)
	assert.Contains(t, reader.Imports, Import{Module: "database.sql", Alias: "sq"})

	var store, methods Declaration
	for _, d := range decls {
		if d.Name != "Store" {
			continue
		}
		if d.Receiver != "" {
			methods = d
		} else {
			store = d
		}
	}
	assert.True(t, field(t, store, "Base").Owned)
	assert.False(t, field(t, store, "Logger").Owned)
	assert.False(t, field(t, store, "db").Owned)
	assert.Equal(t, graph.Package, field(t, store, "db").Visibility)
	assert.True(t, field(t, store, "records").Owned)
	assert.False(t, field(t, store, "onEvent").Owned)

	assert.Equal(t, "Store", methods.Receiver)
	get := method(t, methods, "Get")
	assert.Equal(t, graph.Public, get.Visibility)
	assert.Equal(t, "...string", get.Parameters[1].Type)
}

func TestScanGoConstantsInOtherFile(t *testing.T) {
	root := writeTree(t, map[string]string{
		"log/level.go":  "package log\n\ntype Level int\n\nfunc (l Level) String() string { return \"\" }\n",
		"log/levels.go": "package log\n\nconst (\n\tDebug Level = iota\n\tInfo\n)\n\nconst limit int = 3\n",
	})
	decls, errs := collect(t, New(Options{}), root)
	require.Empty(t, errs)
	require.Len(t, decls, 3)

	var level, consts Declaration
	for _, d := range decls {
		assert.Equal(t, "log.Level", d.QualifiedName())
		switch {
		case d.Receiver == "":
			level = d
		case len(d.Fields) > 0:
			consts = d
		}
	}
	assert.Equal(t, graph.KindEnum, level.Kind)
	assert.Empty(t, level.Fields)

	assert.Equal(t, "log/levels.go", consts.File)
	assert.Equal(t, graph.KindEnum, consts.Kind)
	require.Len(t, consts.Fields, 2)
	assert.Equal(t, "Info", consts.Fields[1].Name)
	assert.True(t, consts.Fields[1].Static)
}

func TestScanGoRootPackage(t *testing.T) {
	root := writeTree(t, map[string]string{"main.go": "package tool\n\ntype Config struct{ Name string }\n"})
	decls, errs := collect(t, New(Options{}), root)
	require.Empty(t, errs)
	require.Len(t, decls, 1)
	assert.Equal(t, "tool.Config", decls[0].QualifiedName())
}

func TestScanFilters(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/a.py":                  "class A:\n    pass\n",
		"src/b.ts":                  "export class B {}\n",
		"src/gen/c.py":              "class C:\n    pass\n",
		"node_modules/pkg/d.js":     "class D {}\n",
		".hidden/e.py":              "class E:\n    pass\n",
		"ignored/f.py":              "class F:\n    pass\n",
		".gitignore":                "ignored/\n",
		"README.md":                 "# readme\n",
	})

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"defaults", Options{Exclude: DefaultExclude, Gitignore: true}, []string{"A", "B", "C"}},
		{"no gitignore", Options{Exclude: DefaultExclude}, []string{"A", "B", "C", "F"}},
		{"include", Options{Include: []string{"src/*.py"}}, []string{"A"}},
		{"exclude dir", Options{Exclude: []string{"src/gen/**", "**/node_modules/**"}, Gitignore: true}, []string{"A", "B"}},
		{"language", Options{Languages: []Language{TypeScript}}, []string{"B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decls, errs := collect(t, New(tt.opts), root)
			require.Empty(t, errs)
			var names []string
			for _, d := range decls {
				names = append(names, d.Name)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}

func TestScanSkipsLargeFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"small.py": "class Small:\n    pass\n",
		"big.py":   "class Big:\n    pass\n# padding padding padding padding padding\n",
	})
	decls, errs := collect(t, New(Options{MaxFileSize: 30}), root)
	require.Empty(t, errs)
	require.Len(t, decls, 1)
	assert.Equal(t, "Small", decls[0].Name)
}

func TestScanSingleFile(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkg/one.py": "class One:\n    pass\n",
		"pkg/two.py": "class Two:\n    pass\n",
	})
	decls, errs := collect(t, New(Options{}), filepath.Join(root, "pkg", "one.py"))
	require.Empty(t, errs)
	require.Len(t, decls, 1)
	assert.Equal(t, "one.One", decls[0].QualifiedName())
}

func TestScanUnparsableFile(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a_good.py": "class Good:\n    pass\n",
		"b_bad.py":  "class Broken(:\n    def\n",
		"c_more.py": "class More:\n    pass\n",
	})

	t.Run("partial results", func(t *testing.T) {
		decls, errs := collect(t, New(Options{}), root)
		require.Len(t, errs, 1)
		var serr *ScanError
		require.ErrorAs(t, errs[0], &serr)
		assert.Equal(t, "b_bad.py", serr.Path)
		assert.ErrorIs(t, serr, ErrSyntax)
		assert.Positive(t, serr.Line)

		var names []string
		for _, d := range decls {
			names = append(names, d.Name)
		}
		assert.Equal(t, []string{"Good", "More"}, names)
	})

	t.Run("strict", func(t *testing.T) {
		decls, errs := collect(t, New(Options{Strict: true}), root)
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], ErrSyntax)
		require.Len(t, decls, 1)
		assert.Equal(t, "Good", decls[0].Name)
	})
}

func TestScanHonorsCancellation(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "class A:\n    pass\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seq, err := New(Options{}).Scan(ctx, root)
	require.NoError(t, err)
	for _, err := range seq {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestModulePath(t *testing.T) {
	tests := []struct {
		rel  string
		lang Language
		want string
	}{
		{"shop/order.py", Python, "shop.order"},
		{"shop/__init__.py", Python, "shop"},
		{"__init__.py", Python, ""},
		{"src/models/index.ts", TypeScript, "src.models"},
		{"index.ts", TypeScript, "index"},
		{"internal/graph/model.go", Go, "internal.graph"},
		{"main.go", Go, ""},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, modulePath(tt.rel, tt.lang))
		})
	}
}

func TestResolveESModule(t *testing.T) {
	assert.Equal(t, "src.models.user", resolveESModule("src/models/order.ts", "./user"))
	assert.Equal(t, "src.billing", resolveESModule("src/models/order.ts", "../billing/index.js"))
	assert.Equal(t, "@scope.pkg", resolveESModule("src/a.ts", "@scope/pkg"))
}

func TestIsSource(t *testing.T) {
	assert.True(t, IsSource("a/b/c.py"))
	assert.True(t, IsSource("x.TSX"))
	assert.False(t, IsSource("README.md"))
}
