// Command distill runs one distillation job from the terminal and writes
// the resulting dataset files to an output directory.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	llmclient "distillery/internal/llmClient"
	"distillery/internal/pipeline"
	"distillery/internal/progress"
	"distillery/internal/service"
	"distillery/internal/store"
	"distillery/internal/types"
)

func main() {
	topic := flag.String("topic", "", "topic to distill (required)")
	projectName := flag.String("project", "", "project display name, defaults to the topic")
	levels := flag.Int("levels", 2, "tree depth")
	tagsPerLevel := flag.Int("tags", 10, "children per tree node")
	questionsPerTag := flag.Int("questions", 10, "questions per leaf")
	datasetType := flag.String("type", "single-turn", "dataset type: single-turn, multi-turn, both")
	model := flag.String("model", "gemini-2.0-flash", "Gemini model id")
	language := flag.String("language", "English", "output language")
	concurrency := flag.Int("concurrency", 5, "parallel generation calls")
	scenario := flag.String("scenario", "", "multi-turn scenario")
	roleA := flag.String("role-a", "", "multi-turn asking role")
	roleB := flag.String("role-b", "", "multi-turn answering role")
	rounds := flag.Int("rounds", 0, "multi-turn rounds per conversation")
	outDir := flag.String("out", "out", "output directory")
	offline := flag.Bool("offline", false, "use the offline fake client instead of Gemini")
	flag.Parse()

	if *topic == "" {
		log.Fatal("--topic is required")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal(err)
	}

	_ = godotenv.Load()

	ctx := context.Background()
	llm := buildClient(ctx, *offline, *model)
	defer llm.Close()

	st := store.NewMemoryStore()
	name := *projectName
	if name == "" {
		name = *topic
	}
	if err := st.PutProject(ctx, types.Project{ID: "cli", Name: name}); err != nil {
		log.Fatal(err)
	}

	cfg := types.JobConfig{
		ProjectID:        "cli",
		Topic:            *topic,
		Levels:           *levels,
		TagsPerLevel:     *tagsPerLevel,
		QuestionsPerTag:  *questionsPerTag,
		DatasetType:      types.DatasetType(*datasetType),
		ConcurrencyLimit: *concurrency,
		Model:            *model,
		Language:         *language,
	}
	cfg = cfg.Normalized()
	if cfg.DatasetType.WantsMultiTurn() {
		mt := types.MultiTurnConfig{
			Scenario: *scenario,
			RoleA:    *roleA,
			RoleB:    *roleB,
			Rounds:   *rounds,
		}
		if !mt.Valid() {
			log.Fatal("--scenario, --role-a, --role-b and --rounds >= 1 are required for multi-turn output")
		}
		if err := st.PutMultiTurnConfig(ctx, "cli", mt); err != nil {
			log.Fatal(err)
		}
	}

	// Stream the run's log feed to the terminal as it grows.
	seen := 0
	tracker := progress.NewTrackerWithNotify(func(snap progress.Snapshot) {
		for ; seen < len(snap.Logs); seen++ {
			fmt.Println(snap.Logs[seen])
		}
	})
	defer tracker.Close()

	gen := service.New("cli", st, llm)
	start := time.Now()
	if err := pipeline.NewOrchestrator(gen, tracker).Run(ctx, cfg); err != nil {
		log.Fatal(err)
	}

	if cfg.DatasetType.WantsSingleTurn() {
		datasets, err := st.ListDatasets(ctx, "cli")
		if err != nil {
			log.Fatal(err)
		}
		writeJSON(*outDir, "dataset.json", datasets)
	}
	if cfg.DatasetType.WantsMultiTurn() {
		conversations, err := st.ListConversations(ctx, "cli")
		if err != nil {
			log.Fatal(err)
		}
		writeJSON(*outDir, "conversations.json", conversations)
	}

	snap := tracker.Snapshot()
	log.Printf("done in %s: %d tags, %d questions, %d datasets, %d conversations",
		time.Since(start).Round(time.Millisecond),
		snap.TagsBuilt, snap.QuestionsBuilt, snap.DatasetsBuilt, snap.MultiTurnBuilt)
}

func buildClient(ctx context.Context, offline bool, model string) llmclient.LLMClient {
	if offline {
		return llmclient.NewFakeClient()
	}
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY is not set (or pass --offline)")
	}
	gem, err := llmclient.NewGeminiClient(ctx, apiKey, model)
	if err != nil {
		log.Fatal(err)
	}
	return llmclient.Chain(gem, llmclient.Retry(3, time.Second))
}

func writeJSON(dir, name string, v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", path)
}
