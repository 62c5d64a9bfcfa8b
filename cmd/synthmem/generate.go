package synthmem

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/synthmem"
	"github.com/soundprediction/synthmem/pkg/config"
	"github.com/soundprediction/synthmem/pkg/export"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate memory datasets from a worlds file",
	Long: `Generate memory datasets for every world defined in a worlds YAML file.

For each world a knowledge graph is built, validated, and rendered into one
markdown document set per focal person node, along with multi-hop retrieval
queries and simulated update scenarios. Each run writes a self-contained
instance directory containing graph.json and one memory_<id> directory per
focal node.`,
	RunE: runGenerate,
}

var (
	worldsFile string
	outputDir  string
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&worldsFile, "worlds", "w", "worlds.yaml", "Worlds definition file")
	generateCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default from config)")

	generateCmd.Flags().Int("people", 0, "Person stubs per graph")
	generateCmd.Flags().Int("entities", 0, "Non-person entity stubs per graph")
	generateCmd.Flags().Int("focal-nodes", 0, "Focal person nodes per graph")
	generateCmd.Flags().Int("queries-per-hop", 0, "Queries per hop distance")
	generateCmd.Flags().Int("updates-per-node", 0, "Update scenarios per focal node")
	generateCmd.Flags().Int64("seed", 0, "Random seed (0 derives one from the clock)")
	generateCmd.Flags().Int("workers", 0, "Concurrent focal-node workers")
	generateCmd.Flags().Bool("no-phrase", false, "Skip natural-language phrasing of queries")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	overrideGenerateFlags(cmd, cfg)

	logger := newLogger(cfg.Log)

	worlds, err := config.LoadWorlds(worldsFile)
	if err != nil {
		return err
	}

	client, cleanup, err := buildClient(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	if client == nil {
		return fmt.Errorf("generation requires an API key; set OPENAI_API_KEY or nlp.api_key")
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exporter *export.Neo4jExporter
	if cfg.Neo4j.Enabled {
		exporter, err = export.NewNeo4jExporter(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to neo4j: %w", err)
		}
		defer exporter.Close(ctx)
	}

	for _, world := range worlds {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		gen := world.Apply(cfg.Generation)
		logger.Info("generating world", "name", world.Name,
			"people", gen.People, "entities", gen.Entities, "focal_nodes", gen.FocalNodes)

		pipeline := synthmem.New(client, synthmem.Options{
			Radius:         gen.Radius,
			QueriesPerHop:  gen.QueriesPerHop,
			UpdatesPerNode: gen.UpdatesPerNode,
			FocalNodes:     gen.FocalNodes,
			Workers:        gen.Workers,
			Seed:           gen.Seed,
			Phrase:         gen.Phrase,
			FocalTimeout:   time.Duration(gen.FocalTimeoutSeconds) * time.Second,
		}, logger)

		result, err := pipeline.Run(ctx, world.Description, gen.People, gen.Entities)
		if err != nil {
			return fmt.Errorf("world %q: %w", world.Name, err)
		}

		instance, err := export.NewInstance(cfg.Output.BaseDir)
		if err != nil {
			return fmt.Errorf("world %q: %w", world.Name, err)
		}
		if err := instance.WriteGraph(result.Graph); err != nil {
			return fmt.Errorf("world %q: %w", world.Name, err)
		}
		for _, memory := range result.Memories {
			if err := instance.WriteMemory(memory); err != nil {
				return fmt.Errorf("world %q: %w", world.Name, err)
			}
		}

		if exporter != nil {
			if err := exporter.Export(ctx, result.Graph, instance.ID); err != nil {
				logger.Warn("neo4j export failed", "world", world.Name, "error", err)
			}
		}

		printSummary(world.Name, instance, result)
	}
	return nil
}

func overrideGenerateFlags(cmd *cobra.Command, cfg *config.Config) {
	if outputDir != "" {
		cfg.Output.BaseDir = outputDir
	}
	if cmd.Flags().Changed("people") {
		cfg.Generation.People, _ = cmd.Flags().GetInt("people")
	}
	if cmd.Flags().Changed("entities") {
		cfg.Generation.Entities, _ = cmd.Flags().GetInt("entities")
	}
	if cmd.Flags().Changed("focal-nodes") {
		cfg.Generation.FocalNodes, _ = cmd.Flags().GetInt("focal-nodes")
	}
	if cmd.Flags().Changed("queries-per-hop") {
		cfg.Generation.QueriesPerHop, _ = cmd.Flags().GetInt("queries-per-hop")
	}
	if cmd.Flags().Changed("updates-per-node") {
		cfg.Generation.UpdatesPerNode, _ = cmd.Flags().GetInt("updates-per-node")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Generation.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Generation.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("no-phrase") {
		noPhrase, _ := cmd.Flags().GetBool("no-phrase")
		cfg.Generation.Phrase = !noPhrase
	}
}

func printSummary(world string, instance *export.Instance, result *synthmem.RunResult) {
	fmt.Fprintf(os.Stdout, "world %s -> %s\n", world, instance.Path)
	fmt.Fprintf(os.Stdout, "  nodes: %d, edges: %d\n", len(result.Graph.Nodes()), len(result.Graph.Edges()))
	for _, report := range result.Reports {
		if report.Skipped {
			fmt.Fprintf(os.Stdout, "  %s: skipped (%s)\n", report.NodeName, report.Reason)
			continue
		}
		fmt.Fprintf(os.Stdout, "  %s -> %s: %d queries, %d updates\n",
			report.NodeName, report.MemoryID, report.Queries, report.Updates)
		for hop, missing := range report.Shortfall {
			if missing > 0 {
				fmt.Fprintf(os.Stdout, "    hop %d short by %d queries\n", hop, missing)
			}
		}
	}
}
