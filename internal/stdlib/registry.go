// Package stdlib is the standard-library metadata registry: a fluent
// builder populates, per compilation, the function signatures and raw
// IR declarations available to `import "name"` statements.
package stdlib

import (
	"fmt"
	"strings"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
)

// Signature is one function's metadata within a module.
type Signature struct {
	Name       string
	Params     []string // source type names
	ReturnType string
	Variadic   bool
	LLVMName   string // defaults to Name if empty
	IR         string // raw `declare ...` line; synthesized if empty
}

// Module is a named collection of function signatures plus the linker
// flags the driver needs to pass when linking a program that imports it.
type Module struct {
	Name      string
	Functions map[string]*Signature
	Order     []string
	Flags     []string
}

// Registry is a per-compilation registry of standard-library modules.
// Spec §5 calls for an explicit Reset rather than a process-wide
// singleton; REPL sessions that want to reuse one instance across
// compilations call Reset between runs.
type Registry struct {
	modules map[string]*Module
}

func NewRegistry() *Registry {
	r := &Registry{modules: make(map[string]*Module)}
	r.registerBuiltinModules()
	return r
}

// Reset clears and re-registers the built-in modules, matching the
// spec's reset_instance() contract.
func (r *Registry) Reset() {
	r.modules = make(map[string]*Module)
	r.registerBuiltinModules()
}

func (r *Registry) Get(name string) (*Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.modules[name]
	return ok
}

// ModuleBuilder is the fluent DefineModule(...).DefineFunction(...)...
// chain the component design names.
type ModuleBuilder struct {
	registry *Registry
	module   *Module
}

func (r *Registry) DefineModule(name string) *ModuleBuilder {
	m := &Module{Name: name, Functions: make(map[string]*Signature)}
	return &ModuleBuilder{registry: r, module: m}
}

func (mb *ModuleBuilder) DefineFunction(name string) *FunctionBuilder {
	sig := &Signature{Name: name}
	return &FunctionBuilder{mb: mb, sig: sig}
}

// Build registers the module being defined and returns the registry,
// closing the chain.
func (mb *ModuleBuilder) Build() *Registry {
	mb.registry.modules[mb.module.Name] = mb.module
	return mb.registry
}

// WithFlags attaches linker flags (e.g. "-lm") to the module.
func (mb *ModuleBuilder) WithFlags(flags ...string) *ModuleBuilder {
	mb.module.Flags = append(mb.module.Flags, flags...)
	return mb
}

// FunctionBuilder accumulates one function's signature before Done()
// returns control to the enclosing ModuleBuilder.
type FunctionBuilder struct {
	mb  *ModuleBuilder
	sig *Signature
}

func (fb *FunctionBuilder) Returns(t string) *FunctionBuilder {
	fb.sig.ReturnType = t
	return fb
}

func (fb *FunctionBuilder) WithParams(types ...string) *FunctionBuilder {
	fb.sig.Params = append(fb.sig.Params, types...)
	return fb
}

func (fb *FunctionBuilder) Variadic() *FunctionBuilder {
	fb.sig.Variadic = true
	return fb
}

func (fb *FunctionBuilder) LLVMName(name string) *FunctionBuilder {
	fb.sig.LLVMName = name
	return fb
}

func (fb *FunctionBuilder) WithIR(raw string) *FunctionBuilder {
	fb.sig.IR = raw
	return fb
}

// Done registers the function on the enclosing module and returns it so
// further DefineFunction calls can chain.
func (fb *FunctionBuilder) Done() *ModuleBuilder {
	if fb.sig.LLVMName == "" {
		fb.sig.LLVMName = fb.sig.Name
	}
	fb.mb.module.Functions[fb.sig.Name] = fb.sig
	fb.mb.module.Order = append(fb.mb.module.Order, fb.sig.Name)
	return fb.mb
}

// DeclareLine synthesizes a `declare` line from the signature when IR is
// absent, per the component design's "if with_ir is absent, the declare
// line is synthesized from the signature" rule.
func (s *Signature) DeclareLine() string {
	if s.IR != "" {
		return s.IR
	}
	params := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		params = append(params, domain.ResolveSourceType(p).Tag.String())
	}
	if s.Variadic {
		params = append(params, "...")
	}
	ret := domain.ResolveSourceType(s.ReturnType).Tag.String()
	return fmt.Sprintf("declare %s @%s(%s)", ret, s.LLVMName, strings.Join(params, ", "))
}

func (r *Registry) registerBuiltinModules() {
	r.DefineModule("io").
		// print is a plain, non-format-interpreting write, so it's wired to
		// puts rather than printf: sharing the @printf symbol with a
		// different (non-variadic, void-returning) signature than
		// printf's own declaration would emit two conflicting `declare`s
		// for the same external symbol.
		DefineFunction("print").Returns("void").WithParams("string").LLVMName("puts").Done().
		DefineFunction("printf").Returns("int").WithParams("string").Variadic().Done().
		DefineFunction("scanf").Returns("int").WithParams("string").Variadic().Done().
		DefineFunction("read_line").Returns("string").Done().
		WithFlags("-lc").
		Build()

	r.DefineModule("math").
		DefineFunction("sin").Returns("double").WithParams("double").Done().
		DefineFunction("cos").Returns("double").WithParams("double").Done().
		DefineFunction("tan").Returns("double").WithParams("double").Done().
		DefineFunction("log").Returns("double").WithParams("double").Done().
		DefineFunction("exp").Returns("double").WithParams("double").Done().
		DefineFunction("sqrt").Returns("double").WithParams("double").Done().
		DefineFunction("pow").Returns("double").WithParams("double", "double").Done().
		DefineFunction("pi").Returns("double").WithIR("define double @pi() {\n  ret double 0x400921FB54442D18\n}").Done().
		DefineFunction("e").Returns("double").WithIR("define double @e() {\n  ret double 0x4005BF0A8B145769\n}").Done().
		WithFlags("-lm").
		Build()

	r.DefineModule("string").
		DefineFunction("length").Returns("int").WithParams("string").LLVMName("strlen").Done().
		DefineFunction("concat").Returns("string").WithParams("string", "string").LLVMName("strcat").Done().
		DefineFunction("substring").Returns("string").WithParams("string", "int", "int").Done().
		Build()

	r.DefineModule("types").
		DefineFunction("ftod").Returns("double").WithParams("float").Done().
		DefineFunction("itod").Returns("double").WithParams("int").Done().
		DefineFunction("itof").Returns("float").WithParams("int").Done().
		DefineFunction("dtof").Returns("float").WithParams("double").Done().
		DefineFunction("dtoi").Returns("int").WithParams("double").Done().
		DefineFunction("ftoi").Returns("int").WithParams("float").Done().
		Build()
}
