// Package main provides the entry point for rv5sim.
// rv5sim is a teaching simulator for a 5-stage in-order RISC-V pipeline.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"

	"github.com/sarchlab/rv5sim/emu"
	"github.com/sarchlab/rv5sim/insts"
	"github.com/sarchlab/rv5sim/timing/pipeline"
)

// maxDrainCycles bounds the run-to-completion loop so that programs with
// infinite loops still terminate the CLI.
const maxDrainCycles = 1_000_000

var (
	cycles     = flag.Uint64("cycles", 0, "Number of cycles to simulate (0 = run until the pipeline drains)")
	configPath = flag.String("config", "", "Path to pipeline configuration JSON file")
	forwarding = flag.Bool("forwarding", true, "Enable operand forwarding")
	structural = flag.Bool("structural", false, "Model the shared memory port structural hazard")
	predictor  = flag.String("predictor", "none", "Branch predictor mode: none, static_nt, onebit")
	tracePath  = flag.String("trace", "", "Write the per-cycle trace to this CSV file")
	dump       = flag.Bool("dump", false, "Dump final latch contents")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: rv5sim [options] <program.s>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)
	source, err := os.ReadFile(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading program: %v\n", err)
		os.Exit(1)
	}

	program, err := insts.Assemble(string(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error assembling %s: %v\n", programPath, err)
		os.Exit(1)
	}

	opts, err := pipelineOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	regFile := &emu.RegFile{}
	memory := emu.NewMemory()
	pipe := pipeline.NewPipeline(regFile, memory, opts...)
	pipe.LoadProgram(program)

	if *verbose {
		fmt.Printf("Loaded: %s (%d instructions)\n", programPath, program.Len())
		fmt.Printf("Forwarding: %v  Structural hazard: %v  Predictor: %s\n",
			pipe.Forwarding(), pipe.StructuralHazard(), pipe.PredictorMode())
	}

	run(pipe)
	report(pipe)

	if *tracePath != "" {
		if err := writeTraceFile(pipe, *tracePath); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing trace: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Printf("Trace written to %s\n", *tracePath)
		}
	}

	if *dump {
		spew.Dump(pipe.IFID(), pipe.IDEX(), pipe.EXMEM(), pipe.MEMWB())
	}
}

// pipelineOptions builds the pipeline options from the config file or
// the individual flags.
func pipelineOptions() ([]pipeline.PipelineOption, error) {
	if *configPath != "" {
		config, err := pipeline.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
		return config.Options()
	}

	mode, err := pipeline.ParsePredictorMode(*predictor)
	if err != nil {
		return nil, err
	}
	return []pipeline.PipelineOption{
		pipeline.WithForwarding(*forwarding),
		pipeline.WithStructuralHazard(*structural),
		pipeline.WithPredictor(mode),
	}, nil
}

// run advances the pipeline for the requested cycle count, or until it
// drains when no count was given.
func run(pipe *pipeline.Pipeline) {
	if *cycles > 0 {
		pipe.RunCycles(*cycles)
		return
	}
	for i := 0; i < maxDrainCycles && !pipe.Drained(); i++ {
		pipe.Step()
	}
}

// report prints the simulation summary.
func report(pipe *pipeline.Pipeline) {
	stats := pipe.Stats()
	fmt.Printf("Cycles: %d  Retired: %d  CPI: %.2f\n", stats.Cycles, stats.Retired, stats.CPI())
	fmt.Printf("Stalls: %d  Flushes: %d  Mispredicts: %d\n", stats.Stalls, stats.Flushes, stats.Mispredicts)

	if breakdown := pipe.StallBreakdown(); len(breakdown) > 0 {
		fmt.Println("Stall reasons:")
		for _, sc := range breakdown {
			fmt.Printf("  %-12s %d\n", sc.Reason, sc.Count)
		}
	}

	if *verbose {
		fmt.Println("Program status:")
		for _, st := range pipe.ProgramStatus() {
			retired := "-"
			if st.Retired {
				retired = fmt.Sprintf("cycle %d", st.RetireCycle)
			}
			fmt.Printf("  %3d  %-24s %-4s %s\n", st.PC, st.Text, st.LastStage, retired)
		}

		fmt.Println("Registers (non-zero):")
		for reg, value := range pipe.Registers() {
			if value != 0 {
				fmt.Printf("  x%-3d %d\n", reg, value)
			}
		}

		if mem := pipe.MemorySnapshot(); len(mem) > 0 {
			fmt.Println("Memory:")
			for addr, value := range mem {
				fmt.Printf("  [%d] = %d\n", addr, value)
			}
		}
	}
}

// writeTraceFile exports the per-cycle trace as CSV.
func writeTraceFile(pipe *pipeline.Pipeline, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return pipe.WriteTrace(f)
}
