package netlist

import (
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/sv-netlist/internal/syntax"
)

// nodeKind is the closed set of node categories the pass reacts to; every
// other tag falls into kindOther and is ignored.
type nodeKind int

const (
	kindOther nodeKind = iota
	kindModuleDecl
	kindPortDecl
	kindInstantiation
	kindConnection
)

// classify dispatches on a node's tag. Module and port declarations match by
// substring because the grammar splits them into ANSI and non-ANSI variants;
// instantiation and connection tags are single exact categories.
func classify(tag string) nodeKind {
	switch {
	case tag == "ModuleInstantiation":
		return kindInstantiation
	case tag == "NamedPortConnection":
		return kindConnection
	case strings.Contains(tag, "ModuleDeclaration"):
		return kindModuleDecl
	case strings.Contains(tag, "PortDeclaration"):
		return kindPortDecl
	}
	return kindOther
}

// cursor is the carried-forward context of the single pass: which module
// declaration and which instantiation were most recently observed in the
// node stream. Events that fire before any module declaration are dropped.
type cursor struct {
	module      string
	moduleSet   bool
	instance    Instance
	instanceSet bool
}

// InstanceMap walks the tree once and returns, for every declared module,
// the ordered list of sub-instances created inside it.
func InstanceMap(tree *syntax.Tree) map[string][]Instance {
	instances := make(map[string][]Instance)
	var cur cursor

	for _, node := range tree.Nodes() {
		switch classify(node.Tag()) {
		case kindModuleDecl:
			if name, ok := moduleName(tree, node); ok {
				if _, seen := instances[name]; !seen {
					instances[name] = []Instance{}
				}
				cur.module = name
				cur.moduleSet = true
			}
		case kindInstantiation:
			inst, ok := instanceOf(tree, node)
			if !ok || !cur.moduleSet {
				continue
			}
			instances[cur.module] = append(instances[cur.module], inst)
		}
	}
	return instances
}

// Topology walks the tree once and returns one Module record per declared
// module, carrying its deduplicated port set and its connection list in
// encounter order. The result is sorted by module name; port order within a
// module is a sorted materialization of the set, not declaration order.
func Topology(tree *syntax.Tree) []Module {
	ports := make(map[string]map[Port]struct{})
	connections := make(map[string][]Connection)
	var cur cursor

	for _, node := range tree.Nodes() {
		switch classify(node.Tag()) {
		case kindModuleDecl:
			if name, ok := moduleName(tree, node); ok {
				if _, seen := ports[name]; !seen {
					ports[name] = make(map[Port]struct{})
				}
				if _, seen := connections[name]; !seen {
					connections[name] = []Connection{}
				}
				cur.module = name
				cur.moduleSet = true
			}

		case kindPortDecl:
			if !cur.moduleSet {
				continue
			}
			identNode, ok := tree.Unwrap(node, "PortIdentifier")
			if !ok {
				continue
			}
			dirNode, ok := tree.Unwrap(node, "PortDirection")
			if !ok {
				continue
			}
			direction, ok := ParsePortDirection(strings.TrimSpace(tree.Text(dirNode)))
			if !ok {
				continue
			}
			port := Port{
				Name:      strings.TrimSpace(tree.Text(identNode)),
				Direction: direction,
			}
			if typeNode, ok := tree.Unwrap(node, "DataType"); ok {
				port.Type = strings.TrimSpace(tree.Text(typeNode))
			}
			ports[cur.module][port] = struct{}{}

		case kindInstantiation:
			if inst, ok := instanceOf(tree, node); ok {
				cur.instance = inst
				cur.instanceSet = true
			}

		case kindConnection:
			if !cur.moduleSet || !cur.instanceSet {
				continue
			}
			portNode, ok := tree.Unwrap(node, "PortIdentifier")
			if !ok {
				continue
			}
			exprNode, ok := tree.Unwrap(node, "Expression")
			if !ok {
				continue
			}
			connections[cur.module] = append(connections[cur.module], Connection{
				Name:     strings.TrimSpace(tree.Text(exprNode)),
				PortName: strings.TrimSpace(tree.Text(portNode)),
				Instance: cur.instance,
			})
		}
	}

	modules := make([]Module, 0, len(connections))
	for name := range connections {
		modules = append(modules, Module{
			Name:        name,
			Ports:       sortedPorts(ports[name]),
			Connections: connections[name],
		})
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].Name < modules[j].Name })
	return modules
}

func moduleName(tree *syntax.Tree, node syntax.Node) (string, bool) {
	ident, ok := tree.Unwrap(node, "ModuleIdentifier")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(tree.Text(ident)), true
}

func instanceOf(tree *syntax.Tree, node syntax.Node) (Instance, bool) {
	mod, ok := tree.Unwrap(node, "ModuleIdentifier")
	if !ok {
		return Instance{}, false
	}
	inst, ok := tree.Unwrap(node, "InstanceIdentifier")
	if !ok {
		return Instance{}, false
	}
	return Instance{
		Name:       strings.TrimSpace(tree.Text(inst)),
		ModuleName: strings.TrimSpace(tree.Text(mod)),
	}, true
}

func sortedPorts(set map[Port]struct{}) []Port {
	out := make([]Port, 0, len(set))
	for port := range set {
		out = append(out, port)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Direction != b.Direction {
			return a.Direction < b.Direction
		}
		return a.Type < b.Type
	})
	return out
}
