package pass

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"redopt/internal/ir"
)

func makeClass(in *ir.Interner, name string, methods, fields int) *ir.Class {
	t := in.GetOrMakeType(name)
	c := &ir.Class{Type: t, HasSuper: true, Super: in.GetOrMakeType("Ljava/lang/Object;")}
	voidTy := in.GetOrMakeType("V")
	proto := in.GetOrMakeProto(voidTy, nil)
	for i := 0; i < methods; i++ {
		c.VirtualMethods = append(c.VirtualMethods, &ir.Method{Owner: t, Name: "m", Proto: proto})
	}
	for i := 0; i < fields; i++ {
		c.InstanceFields = append(c.InstanceFields, &ir.Field{Owner: t, Name: "f", Type: voidTy})
	}
	return c
}

func TestScopeFlattensMethodsAndFields(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)
	prog.AddClass(makeClass(in, "LA;", 2, 1))
	prog.AddClass(makeClass(in, "LB;", 1, 3))

	s := NewScope(prog)
	assert.Len(t, s.Methods(), 3)
	assert.Len(t, s.Fields(), 4)
}

type countingPass struct {
	name string
	ran  int
}

func (p *countingPass) Name() string { return p.name }
func (p *countingPass) Run(prog *ir.Program, scope *Scope, mgr *PassManager) {
	p.ran++
	mgr.IncrMetric("passes_run", 1)
}

func TestPassManagerRunsInOrderAndAccumulatesMetrics(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)
	scope := NewScope(prog)

	log := logrus.New()
	mgr := NewPassManager(log)

	a := &countingPass{name: "a"}
	b := &countingPass{name: "b"}
	mgr.Run(prog, scope, []Pass{a, b})

	assert.Equal(t, 1, a.ran)
	assert.Equal(t, 1, b.ran)
	assert.EqualValues(t, 2, mgr.Metric("passes_run"))
	assert.Equal(t, map[string]int64{"passes_run": 2}, mgr.Metrics())
}

func TestSetMetricOverwritesRatherThanAccumulates(t *testing.T) {
	mgr := NewPassManager(nil)
	mgr.IncrMetric("x", 5)
	mgr.SetMetric("x", 10)
	assert.EqualValues(t, 10, mgr.Metric("x"))
}

func TestDumpMetricsDoesNotPanicOnEmptyOrPopulatedManager(t *testing.T) {
	mgr := NewPassManager(logrus.New())
	assert.NotPanics(t, mgr.DumpMetrics)

	mgr.IncrMetric("rewrites", 3)
	assert.NotPanics(t, mgr.DumpMetrics)
}
