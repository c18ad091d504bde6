// Command example walks through the two cores of the ratmip package: it
// builds a small assignment MIP, flushes the exact LP into an in-memory
// backend, then detects and handles the machine-interchange symmetry.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gitrdm/ratmip/pkg/ratmip"
)

func main() {
	var verbose bool
	var dynamic bool

	root := &cobra.Command{
		Use:   "example",
		Short: "walkthrough of the exact LP flush and the symmetry handler",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logrus.New()
			log.SetLevel(logrus.InfoLevel)
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			if err := runFlushDemo(log); err != nil {
				return err
			}
			return runSymmetryDemo(log, dynamic)
		},
	}
	flags := pflag.NewFlagSet("example", pflag.ContinueOnError)
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.BoolVar(&dynamic, "dynamic", true, "use dynamic orbitope propagation")
	root.Flags().AddFlagSet(flags)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runFlushDemo builds two jobs x two machines worth of binaries, one
// partitioning row per job, and ships the whole thing to the backend.
func runFlushDemo(log *logrus.Logger) error {
	fmt.Println("=== exact LP flush ===")

	stats := ratmip.NewSolverStats()
	backend := newMemBackend()
	lp := ratmip.NewLP(backend, stats, log)

	vars, err := assignmentVars()
	if err != nil {
		return err
	}
	cols := make([]*ratmip.Column, len(vars))
	for i, v := range vars {
		cols[i] = ratmip.NewColumn(v)
		lp.AddColToLP(cols[i])
	}

	one := ratmip.RatInt(1)
	for j := 0; j < 2; j++ {
		row := lp.NewRow(fmt.Sprintf("assign_job%d", j), one, one, ratmip.RatZero())
		for m := 0; m < 2; m++ {
			if err := lp.AddCoef(row, cols[2*j+m], one); err != nil {
				return err
			}
		}
		lp.AddRowToLP(row)
	}

	if err := lp.Flush(); err != nil {
		return err
	}
	fmt.Printf("flushed %d columns and %d rows in %d backend calls\n",
		lp.NLPICols(), lp.NLPIRows(), backend.ncalls)

	// An incremental change flushes as a single primitive.
	lp.ChgColObj(cols[0], ratmip.RatInt(3))
	before := backend.ncalls
	if err := lp.Flush(); err != nil {
		return err
	}
	fmt.Printf("objective change reflushed in %d backend call(s)\n", backend.ncalls-before)
	fmt.Println()
	return nil
}

// runSymmetryDemo feeds the same model to the symmetry handler. The two
// machines are interchangeable, which shows up as a 2x2 orbitope over the
// assignment binaries.
func runSymmetryDemo(log *logrus.Logger, dynamic bool) error {
	fmt.Println("=== symmetry handling ===")

	vars, err := assignmentVars()
	if err != nil {
		return err
	}
	var conss []ratmip.Cons
	for j := 0; j < 2; j++ {
		c, err := ratmip.NewSetPPCCons(fmt.Sprintf("assign_job%d", j),
			ratmip.ConsSetPartitioning,
			[]*ratmip.Variable{vars[2*j], vars[2*j+1]})
		if err != nil {
			return err
		}
		conss = append(conss, c)
	}

	params := ratmip.DefaultSymParams()
	params.UseDynamicProp = dynamic
	stats := ratmip.NewSolverStats()
	sys := &printingConsSys{}
	engine := &machineSwapEngine{}
	state, err := ratmip.NewSymmetryState(engine, sys, stats, params, log)
	if err != nil {
		return err
	}
	if err := state.Compute(vars, conss, nil, nil); err != nil {
		return err
	}

	fmt.Printf("components: %d, handlers installed: %d\n",
		state.Decomposition().NComponents(), state.NHandlers())
	for _, orb := range state.Orbitopes() {
		fmt.Printf("orbitope: %d rows x %d cols\n", orb.NRows(), orb.NCols())
	}

	// Branch: put job 0 on machine 1 and propagate.
	vars[1].LbLocal = ratmip.RatInt(1)
	status, n, err := state.Propagate(nil)
	if err != nil {
		return err
	}
	fmt.Printf("propagation: %s with %d reduction(s)\n", status, n)
	state.Teardown()
	return nil
}

// assignmentVars returns the four binaries x_{job,machine} in row-major
// order with identical objective coefficients.
func assignmentVars() ([]*ratmip.Variable, error) {
	out := make([]*ratmip.Variable, 0, 4)
	for j := 0; j < 2; j++ {
		for m := 0; m < 2; m++ {
			v, err := ratmip.NewVariable(len(out), fmt.Sprintf("x_%d_%d", j, m),
				ratmip.VarBinary, ratmip.RatInt(1), ratmip.RatZero(), ratmip.RatInt(1))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// machineSwapEngine hands back the machine-interchange generator. A real
// automorphism engine would search the colored graph; the walkthrough
// keeps the known symmetry canned.
type machineSwapEngine struct{}

func (e *machineSwapEngine) ComputeGenerators(g *ratmip.SymGraph, maxGenerators int) (*ratmip.SymmetryResult, error) {
	return &ratmip.SymmetryResult{
		Perms:         [][]int{{1, 0, 3, 2}},
		LogGroupOrder: 0.301,
	}, nil
}

// printingConsSys echoes every installed handler constraint.
type printingConsSys struct{}

func (p *printingConsSys) AddOrbitope(name string, kind ratmip.OrbitopeKind, matrix [][]*ratmip.Variable, dynamic bool) error {
	fmt.Printf("install orbitope %s (%d rows, dynamic=%v)\n", name, len(matrix), dynamic)
	return nil
}

func (p *printingConsSys) AddSymresack(name string, perm []int, vars []*ratmip.Variable) error {
	fmt.Printf("install symresack %s over %d variables\n", name, len(vars))
	return nil
}

func (p *printingConsSys) AddLinearInequality(name string, coefs []ratmip.Rational, vars []*ratmip.Variable, lhs, rhs ratmip.Rational) error {
	fmt.Printf("install inequality %s over %d variables\n", name, len(vars))
	return nil
}

func (p *printingConsSys) FixVarUpper(v *ratmip.Variable, value ratmip.Rational) error {
	fmt.Printf("fix %s <= %s\n", v.Name, value)
	return nil
}

// memBackend is a minimal in-memory BackendLP: dense slices per column and
// row, enough to receive a flush and answer the Get* assertions.
type memBackend struct {
	objs, lbs, ubs []ratmip.Rational
	lhss, rhss     []ratmip.Rational
	ncalls         int
}

func newMemBackend() *memBackend { return &memBackend{} }

func (b *memBackend) AddCols(objs, lbs, ubs []ratmip.Rational, names []string, beg, ind []int, vals []ratmip.Rational) error {
	b.ncalls++
	b.objs = append(b.objs, objs...)
	b.lbs = append(b.lbs, lbs...)
	b.ubs = append(b.ubs, ubs...)
	return nil
}

func (b *memBackend) AddRows(lhss, rhss []ratmip.Rational, names []string, beg, ind []int, vals []ratmip.Rational) error {
	b.ncalls++
	b.lhss = append(b.lhss, lhss...)
	b.rhss = append(b.rhss, rhss...)
	return nil
}

func (b *memBackend) DelCols(from, to int) error {
	b.ncalls++
	b.objs = b.objs[:from]
	b.lbs = b.lbs[:from]
	b.ubs = b.ubs[:from]
	return nil
}

func (b *memBackend) DelRows(from, to int) error {
	b.ncalls++
	b.lhss = b.lhss[:from]
	b.rhss = b.rhss[:from]
	return nil
}

func (b *memBackend) ChgObj(ind []int, objs []ratmip.Rational) error {
	b.ncalls++
	for k, i := range ind {
		b.objs[i] = objs[k]
	}
	return nil
}

func (b *memBackend) ChgBounds(ind []int, lbs, ubs []ratmip.Rational) error {
	b.ncalls++
	for k, i := range ind {
		b.lbs[i] = lbs[k]
		b.ubs[i] = ubs[k]
	}
	return nil
}

func (b *memBackend) ChgSides(ind []int, lhss, rhss []ratmip.Rational) error {
	b.ncalls++
	for k, i := range ind {
		b.lhss[i] = lhss[k]
		b.rhss[i] = rhss[k]
	}
	return nil
}

func (b *memBackend) GetObj(from, to int) ([]ratmip.Rational, error) {
	return b.objs[from : to+1], nil
}

func (b *memBackend) GetBounds(from, to int) ([]ratmip.Rational, []ratmip.Rational, error) {
	return b.lbs[from : to+1], b.ubs[from : to+1], nil
}

func (b *memBackend) GetSides(from, to int) ([]ratmip.Rational, []ratmip.Rational, error) {
	return b.lhss[from : to+1], b.rhss[from : to+1], nil
}
