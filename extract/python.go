package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

var errSyntax = errors.New("syntax error")

// extractPython parses content with the tree-sitter Python grammar and walks
// module-level statements, descending one level into class bodies.
// Nested functions are not reported.
func extractPython(ctx context.Context, content []byte) (*Facts, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, errSyntax
	}

	facts := newFacts("python")
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		if node.Type() == "decorated_definition" {
			node = node.ChildByFieldName("definition")
			if node == nil {
				continue
			}
		}

		switch node.Type() {
		case "import_statement":
			for _, name := range pythonImportNames(node, nil, content) {
				facts.Imports = append(facts.Imports, "import "+name)
			}
		case "import_from_statement", "future_import_statement":
			facts.Imports = append(facts.Imports, pythonFromImport(node, content))
		case "function_definition":
			facts.Functions = append(facts.Functions, pythonFunction(node, content))
		case "class_definition":
			facts.Classes = append(facts.Classes, pythonClass(node, content))
		case "expression_statement":
			pythonAssignment(node, content, facts)
		}
	}
	facts.Constants = dedupe(facts.Constants)
	return facts, nil
}

func pythonFunction(node *sitter.Node, content []byte) Function {
	fn := Function{
		Name:  fieldContent(node, "name", content),
		Args:  pythonArgs(node.ChildByFieldName("parameters"), content),
		Line:  int(node.StartPoint().Row) + 1,
		Async: node.ChildCount() > 0 && node.Child(0).Type() == "async",
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		fn.Returns = stringPtr(ret.Content(content))
	}
	return fn
}

func pythonClass(node *sitter.Node, content []byte) Class {
	class := Class{
		Name:    fieldContent(node, "name", content),
		Methods: []Method{},
		Line:    int(node.StartPoint().Row) + 1,
		Bases:   []string{},
	}

	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			base := supers.NamedChild(i)
			if base.Type() == "keyword_argument" || base.Type() == "comment" {
				continue
			}
			class.Bases = append(class.Bases, base.Content(content))
		}
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return class
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		if member.Type() == "decorated_definition" {
			member = member.ChildByFieldName("definition")
		}
		if member == nil || member.Type() != "function_definition" {
			continue
		}
		class.Methods = append(class.Methods, Method{
			Name: fieldContent(member, "name", content),
			Args: pythonArgs(member.ChildByFieldName("parameters"), content),
			Line: int(member.StartPoint().Row) + 1,
		})
	}
	return class
}

// pythonArgs returns the ordinary parameters: those after any "/" and before
// the first "*", "*args" or "**kwargs".
func pythonArgs(params *sitter.Node, content []byte) []string {
	args := []string{}
	if params == nil {
		return args
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		param := params.NamedChild(i)
		switch param.Type() {
		case "identifier":
			args = append(args, param.Content(content))
		case "default_parameter", "typed_default_parameter":
			args = append(args, fieldContent(param, "name", content))
		case "typed_parameter":
			first := param.NamedChild(0)
			if first == nil || first.Type() != "identifier" {
				return args
			}
			args = append(args, first.Content(content))
		case "positional_separator":
			args = args[:0]
		case "list_splat_pattern", "dictionary_splat_pattern", "keyword_separator":
			return args
		}
	}
	return args
}

// pythonImportNames lists the imported dotted names of node, skipping the
// module node of a from-import. Aliases are dropped.
func pythonImportNames(node, module *sitter.Node, content []byte) []string {
	var names []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if module != nil && child.StartByte() == module.StartByte() {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			names = append(names, child.Content(content))
		case "aliased_import":
			names = append(names, fieldContent(child, "name", content))
		case "wildcard_import":
			names = append(names, "*")
		}
	}
	return names
}

func pythonFromImport(node *sitter.Node, content []byte) string {
	moduleName := "__future__"
	module := node.ChildByFieldName("module_name")
	if module != nil {
		moduleName = module.Content(content)
	}
	names := pythonImportNames(node, module, content)
	return fmt.Sprintf("from %s import %s", moduleName, strings.Join(names, ", "))
}

// pythonAssignment records upper-case assignment targets as constants and
// the string entries of __all__ as exports. Annotated assignments are not
// constants.
func pythonAssignment(stmt *sitter.Node, content []byte, facts *Facts) {
	assign := stmt.NamedChild(0)
	if assign != nil && assign.ChildByFieldName("type") != nil {
		return
	}
	for assign != nil && assign.Type() == "assignment" {
		left := assign.ChildByFieldName("left")
		right := assign.ChildByFieldName("right")
		if left != nil && left.Type() == "identifier" {
			name := left.Content(content)
			switch {
			case name == "__all__" && right != nil:
				facts.Exports = append(facts.Exports, pythonStringList(right, content)...)
			case isUpperIdentifier(name):
				facts.Constants = append(facts.Constants, name)
			}
		}
		assign = right
	}
}

func pythonStringList(node *sitter.Node, content []byte) []string {
	if node.Type() != "list" && node.Type() != "tuple" {
		return nil
	}
	var out []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		item := node.NamedChild(i)
		if item.Type() != "string" {
			continue
		}
		out = append(out, strings.Trim(item.Content(content), `"'`))
	}
	return out
}

// isUpperIdentifier has the semantics of Python's str.isupper: at least one
// cased letter and no lower-case ones.
func isUpperIdentifier(name string) bool {
	cased := false
	for _, r := range name {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func fieldContent(node *sitter.Node, field string, content []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Content(content)
}
