package netlist

import (
	"reflect"
	"testing"

	"github.com/robert-at-pretension-io/sv-netlist/internal/syntax"
)

func parseSV(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	tree, err := syntax.ParseText(src, "test.sv", syntax.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return tree
}

func findModule(modules []Module, name string) (Module, bool) {
	for _, m := range modules {
		if m.Name == name {
			return m, true
		}
	}
	return Module{}, false
}

func TestEmptySourceYieldsNothing(t *testing.T) {
	tree := parseSV(t, "")

	if instances := InstanceMap(tree); len(instances) != 0 {
		t.Fatalf("expected empty instance map, got %#v", instances)
	}
	if modules := Topology(tree); len(modules) != 0 {
		t.Fatalf("expected no modules, got %#v", modules)
	}
}

func TestInstanceMapSingleInstantiation(t *testing.T) {
	tree := parseSV(t, `module top;
  sub u1 (.in(x));
endmodule
`)

	instances := InstanceMap(tree)
	want := map[string][]Instance{
		"top": {{Name: "u1", ModuleName: "sub"}},
	}
	if !reflect.DeepEqual(instances, want) {
		t.Fatalf("instance map mismatch:\n got %#v\nwant %#v", instances, want)
	}
}

func TestInstanceMapEncounterOrder(t *testing.T) {
	tree := parseSV(t, `module top;
  beta u2 ();
  alpha u1 ();
  beta u3 ();
endmodule
`)

	got := InstanceMap(tree)["top"]
	want := []Instance{
		{Name: "u2", ModuleName: "beta"},
		{Name: "u1", ModuleName: "alpha"},
		{Name: "u3", ModuleName: "beta"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("instance order mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestInstanceMapDeclaredModuleWithoutInstances(t *testing.T) {
	tree := parseSV(t, `module leaf(input logic a);
endmodule
`)

	instances := InstanceMap(tree)
	list, ok := instances["leaf"]
	if !ok {
		t.Fatalf("expected entry for declared module leaf, got %#v", instances)
	}
	if len(list) != 0 {
		t.Fatalf("expected no instances for leaf, got %#v", list)
	}
}

func TestTopologyEndToEnd(t *testing.T) {
	tree := parseSV(t, `module top;
  sub s1 (.in(x));
endmodule

module sub(input in);
endmodule
`)

	modules := Topology(tree)
	if len(modules) != 2 {
		t.Fatalf("expected 2 modules, got %d: %#v", len(modules), modules)
	}

	sub, ok := findModule(modules, "sub")
	if !ok {
		t.Fatalf("expected module sub")
	}
	wantPorts := []Port{{Name: "in", Direction: DirectionInput}}
	if !reflect.DeepEqual(sub.Ports, wantPorts) {
		t.Fatalf("sub ports mismatch:\n got %#v\nwant %#v", sub.Ports, wantPorts)
	}
	if len(sub.Connections) != 0 {
		t.Fatalf("expected no connections in sub, got %#v", sub.Connections)
	}

	top, ok := findModule(modules, "top")
	if !ok {
		t.Fatalf("expected module top")
	}
	if len(top.Ports) != 0 {
		t.Fatalf("expected no ports in top, got %#v", top.Ports)
	}
	wantConns := []Connection{{
		Name:     "x",
		PortName: "in",
		Instance: Instance{Name: "s1", ModuleName: "sub"},
	}}
	if !reflect.DeepEqual(top.Connections, wantConns) {
		t.Fatalf("top connections mismatch:\n got %#v\nwant %#v", top.Connections, wantConns)
	}
}

func TestTopologyConnectionOrderPreserved(t *testing.T) {
	tree := parseSV(t, `module top;
  sub s1 (.c(sig_c), .a(sig_a), .b(sig_b));
endmodule
`)

	top, ok := findModule(Topology(tree), "top")
	if !ok {
		t.Fatalf("expected module top")
	}
	var order []string
	for _, conn := range top.Connections {
		order = append(order, conn.PortName)
	}
	want := []string{"c", "a", "b"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("connection order mismatch: got %v want %v", order, want)
	}
}

func TestTopologyConnectionsFollowTheirInstance(t *testing.T) {
	tree := parseSV(t, `module top;
  sub s1 (.a(x));
  other s2 (.b(y));
endmodule
`)

	top, ok := findModule(Topology(tree), "top")
	if !ok {
		t.Fatalf("expected module top")
	}
	if len(top.Connections) != 2 {
		t.Fatalf("expected 2 connections, got %#v", top.Connections)
	}
	if top.Connections[0].Instance.Name != "s1" || top.Connections[0].Instance.ModuleName != "sub" {
		t.Fatalf("first connection bound to wrong instance: %#v", top.Connections[0])
	}
	if top.Connections[1].Instance.Name != "s2" || top.Connections[1].Instance.ModuleName != "other" {
		t.Fatalf("second connection bound to wrong instance: %#v", top.Connections[1])
	}
}

func TestTopologyPortDeduplication(t *testing.T) {
	// Same (name, type, direction) twice collapses; a direction change does
	// not.
	tree := parseSV(t, `module m(a, b);
  input a;
  input a;
  input b;
  output b;
endmodule
`)

	m, ok := findModule(Topology(tree), "m")
	if !ok {
		t.Fatalf("expected module m")
	}
	if len(m.Ports) != 3 {
		t.Fatalf("expected 3 deduplicated ports, got %#v", m.Ports)
	}
	if m.Ports[0] != (Port{Name: "a", Direction: DirectionInput}) {
		t.Fatalf("unexpected first port: %#v", m.Ports[0])
	}
	if m.Ports[1].Name != "b" || m.Ports[1].Direction != DirectionInput {
		t.Fatalf("unexpected second port: %#v", m.Ports[1])
	}
	if m.Ports[2].Name != "b" || m.Ports[2].Direction != DirectionOutput {
		t.Fatalf("unexpected third port: %#v", m.Ports[2])
	}
}

func TestTopologyPortTypeExtraction(t *testing.T) {
	tree := parseSV(t, `module m(input logic [3:0] a, output wire b, inout c);
endmodule
`)

	m, ok := findModule(Topology(tree), "m")
	if !ok {
		t.Fatalf("expected module m")
	}
	byName := map[string]Port{}
	for _, p := range m.Ports {
		byName[p.Name] = p
	}
	if p := byName["a"]; p.Direction != DirectionInput || p.Type != "logic [3:0]" {
		t.Fatalf("unexpected port a: %#v", p)
	}
	if p := byName["b"]; p.Direction != DirectionOutput || p.Type != "wire" {
		t.Fatalf("unexpected port b: %#v", p)
	}
	if p := byName["c"]; p.Direction != DirectionInout || p.Type != "" {
		t.Fatalf("unexpected port c: %#v", p)
	}
}

func TestTopologyUnresolvedConnectionExpressionSkipped(t *testing.T) {
	tree := parseSV(t, `module top;
  sub s1 (.in(), .out(y));
endmodule
`)

	top, ok := findModule(Topology(tree), "top")
	if !ok {
		t.Fatalf("expected module top")
	}
	if len(top.Connections) != 1 {
		t.Fatalf("expected the empty connection to be skipped, got %#v", top.Connections)
	}
	if top.Connections[0].PortName != "out" || top.Connections[0].Name != "y" {
		t.Fatalf("unexpected connection: %#v", top.Connections[0])
	}
}

func TestTopologyDuplicateModuleDeclaration(t *testing.T) {
	// The module key is established at first sight; a re-declaration keeps
	// accumulating into the same record.
	tree := parseSV(t, `module m;
  sub s1 (.a(x));
endmodule

module m;
  sub s2 (.b(y));
endmodule
`)

	modules := Topology(tree)
	if len(modules) != 1 {
		t.Fatalf("expected a single module record, got %#v", modules)
	}
	if len(modules[0].Connections) != 2 {
		t.Fatalf("expected connections from both declarations, got %#v", modules[0].Connections)
	}
}

func TestBuildersAreIdempotent(t *testing.T) {
	tree := parseSV(t, `module top;
  sub s1 (.in(x), .out(y));
endmodule

module sub(input in, output out);
endmodule
`)

	first := Topology(tree)
	second := Topology(tree)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("topology not idempotent:\n first %#v\nsecond %#v", first, second)
	}

	firstMap := InstanceMap(tree)
	secondMap := InstanceMap(tree)
	if !reflect.DeepEqual(firstMap, secondMap) {
		t.Fatalf("instance map not idempotent:\n first %#v\nsecond %#v", firstMap, secondMap)
	}
}

func TestClassifyIgnoresUnrelatedTags(t *testing.T) {
	for _, tag := range []string{"SourceText", "DataType", "Expression", "ContinuousAssign", "HierarchicalInstance", "OrderedPortConnection"} {
		if kind := classify(tag); kind != kindOther {
			t.Fatalf("tag %q should be ignored, classified as %d", tag, kind)
		}
	}
	if classify("ModuleDeclarationAnsi") != kindModuleDecl {
		t.Fatalf("ANSI module declaration not classified")
	}
	if classify("ModuleDeclarationNonansi") != kindModuleDecl {
		t.Fatalf("non-ANSI module declaration not classified")
	}
	if classify("AnsiPortDeclaration") != kindPortDecl {
		t.Fatalf("ANSI port declaration not classified")
	}
}
