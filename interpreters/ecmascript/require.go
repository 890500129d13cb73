package ecmascript

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// LibraryProvider returns the source of the named library.
type LibraryProvider func(ctx context.Context, name string) (string, error)

// MakeFileLibraryProvider resolves "file://" names relative to dir.
func MakeFileLibraryProvider(dir string) LibraryProvider {
	return func(ctx context.Context, name string) (string, error) {
		parts := strings.SplitN(name, "://", 2)
		if len(parts) != 2 {
			return "", fmt.Errorf("bad link '%s'", name)
		}
		if parts[0] != "file" {
			return "", fmt.Errorf("unknown protocol '%s'", parts[0])
		}
		filename := filepath.Clean("/" + parts[1])
		bs, err := os.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			return "", err
		}
		return string(bs), nil
	}
}

// MakeMapLibraryProvider serves libraries from a map.
func MakeMapLibraryProvider(srcs map[string]string) LibraryProvider {
	return func(ctx context.Context, name string) (string, error) {
		src, have := srcs[name]
		if !have {
			return "", fmt.Errorf("undefined library '%s'", name)
		}
		return src, nil
	}
}

// InlineRequires replaces top-level require("name") statements with
// the source of the named library.
//
// Defining require() in the runtime would need eval at runtime,
// which would prevent precompilation.
func InlineRequires(ctx context.Context, src string, provider LibraryProvider) (string, error) {
	p, err := parser.ParseFile(nil, "", wrapParse(src), 0)
	if err != nil {
		return "", err
	}

	type required struct {
		from, to int
		name     string
	}
	var requires []required

	// The parsed source is the body of a function, so statements
	// are one level down.
	for _, s := range body(p) {
		exps, is := s.(*ast.ExpressionStatement)
		if !is {
			continue
		}
		call, is := exps.Expression.(*ast.CallExpression)
		if !is {
			continue
		}
		id, is := call.Callee.(*ast.Identifier)
		if !is || id.Name != "require" {
			continue
		}
		if len(call.ArgumentList) != 1 {
			return "", errors.New("require takes one argument")
		}
		lit, is := call.ArgumentList[0].(*ast.StringLiteral)
		if !is {
			return "", errors.New("require takes a string literal")
		}
		// Idx values are 1-based and count the wrapper's prefix.
		requires = append(requires, required{
			from: int(exps.Idx0()) - 1 - len(parsePrefix),
			to:   int(exps.Idx1()) - 1 - len(parsePrefix),
			name: string(lit.Value),
		})
	}
	if len(requires) == 0 {
		return src, nil
	}
	if provider == nil {
		return "", errors.New("no library provider for require")
	}

	var b strings.Builder
	at := 0
	for _, r := range requires {
		lib, err := provider(ctx, r.name)
		if err != nil {
			return "", err
		}
		b.WriteString(src[at:r.from])
		b.WriteString(lib)
		b.WriteString("\n")
		at = r.to
	}
	b.WriteString(src[at:])
	return b.String(), nil
}

const parsePrefix = "(async function() {\n"

// wrapParse lets the parser accept top-level await.
func wrapParse(src string) string {
	return parsePrefix + src + "\n})"
}

func body(p *ast.Program) []ast.Statement {
	if len(p.Body) != 1 {
		return nil
	}
	es, is := p.Body[0].(*ast.ExpressionStatement)
	if !is {
		return nil
	}
	fn, is := es.Expression.(*ast.FunctionLiteral)
	if !is || fn.Body == nil {
		return nil
	}
	return fn.Body.List
}
