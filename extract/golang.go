package extract

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
)

// extractGo parses a Go source file and reports its top-level declarations.
// Struct types are reported as classes carrying their methods, with embedded
// fields as bases.
func extractGo(filePath string, content []byte) (*Facts, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, content, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	facts := newFacts("go")
	for _, spec := range file.Imports {
		imp := "import " + spec.Path.Value
		if spec.Name != nil {
			imp = "import " + spec.Name.Name + " " + spec.Path.Value
		}
		facts.Imports = append(facts.Imports, imp)
	}

	classIndex := map[string]int{}
	methods := map[string][]Method{}
	line := func(pos token.Pos) int { return fset.Position(pos).Line }

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv != nil && len(d.Recv.List) > 0 {
				recv := receiverTypeName(d.Recv.List[0].Type)
				methods[recv] = append(methods[recv], Method{
					Name: d.Name.Name,
					Args: goParamNames(d.Type.Params),
					Line: line(d.Pos()),
				})
				continue
			}
			fn := Function{
				Name: d.Name.Name,
				Args: goParamNames(d.Type.Params),
				Line: line(d.Pos()),
			}
			if ret := goResults(d.Type.Results); ret != "" {
				fn.Returns = stringPtr(ret)
			}
			facts.Functions = append(facts.Functions, fn)
			addGoExport(facts, d.Name.Name)

		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					addGoExport(facts, s.Name.Name)
					switch t := s.Type.(type) {
					case *ast.StructType:
						classIndex[s.Name.Name] = len(facts.Classes)
						facts.Classes = append(facts.Classes, Class{
							Name:    s.Name.Name,
							Methods: []Method{},
							Line:    line(s.Pos()),
							Bases:   embeddedFields(t),
						})
					case *ast.InterfaceType:
						facts.Interfaces = append(facts.Interfaces, s.Name.Name)
					default:
						facts.Types = append(facts.Types, s.Name.Name)
					}
				case *ast.ValueSpec:
					for _, name := range s.Names {
						if name.Name == "_" {
							continue
						}
						if d.Tok == token.CONST {
							facts.Constants = append(facts.Constants, name.Name)
						}
						addGoExport(facts, name.Name)
					}
				}
			}
		}
	}

	for recv, ms := range methods {
		if i, ok := classIndex[recv]; ok {
			facts.Classes[i].Methods = append(facts.Classes[i].Methods, ms...)
		}
	}
	return facts, nil
}

func addGoExport(facts *Facts, name string) {
	if ast.IsExported(name) {
		facts.Exports = append(facts.Exports, name)
	}
}

// receiverTypeName strips pointers and type parameters from a receiver type.
func receiverTypeName(expr ast.Expr) string {
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.ParenExpr:
			expr = t.X
		case *ast.Ident:
			return t.Name
		default:
			return types.ExprString(expr)
		}
	}
}

func goParamNames(fields *ast.FieldList) []string {
	args := []string{}
	if fields == nil {
		return args
	}
	for _, field := range fields.List {
		if len(field.Names) == 0 {
			args = append(args, "_")
			continue
		}
		for _, name := range field.Names {
			args = append(args, name.Name)
		}
	}
	return args
}

// goResults renders the result list the way it is written in a signature.
func goResults(fields *ast.FieldList) string {
	if fields == nil || len(fields.List) == 0 {
		return ""
	}
	if len(fields.List) == 1 && len(fields.List[0].Names) == 0 {
		return types.ExprString(fields.List[0].Type)
	}
	parts := make([]string, 0, len(fields.List))
	for _, field := range fields.List {
		typ := types.ExprString(field.Type)
		if len(field.Names) == 0 {
			parts = append(parts, typ)
			continue
		}
		names := make([]string, len(field.Names))
		for i, n := range field.Names {
			names[i] = n.Name
		}
		parts = append(parts, strings.Join(names, ", ")+" "+typ)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func embeddedFields(st *ast.StructType) []string {
	bases := []string{}
	if st.Fields == nil {
		return bases
	}
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 {
			bases = append(bases, types.ExprString(field.Type))
		}
	}
	return bases
}
