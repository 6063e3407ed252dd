package cmd

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"charrnn/decoder"
	"charrnn/vocab"
)

var (
	genTables   string
	genCount    int
	genMaxSteps int
	genSeed     int64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Greedy-decode words from sampled vocabulary embeddings",
	Long: `Loads the vocabulary artifacts, builds a decoder from the model
configuration and greedily decodes a word from the embedding of each sampled
vocabulary entry. Weights are random per run (parameter persistence is out
of scope), so the output exercises the full decode loop rather than
producing real words.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genTables, "tables", "pickled_word_vecs/glove50d", "vocabulary artifact path prefix")
	generateCmd.Flags().IntVar(&genCount, "count", 5, "number of words to decode")
	generateCmd.Flags().IntVar(&genMaxSteps, "max-steps", decoder.DefaultMaxSteps, "generation safety bound")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "word sampling seed (0 uses a random one)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	logger, err := buildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	wt, err := vocab.LoadWordTable(genTables)
	if err != nil {
		return err
	}
	ct, err := vocab.LoadCharTable(genTables)
	if err != nil {
		return err
	}

	model, err := decoder.NewHeadDecoder(modelConfig(ct.Size(), wt.Dim()))
	if err != nil {
		return err
	}
	gen := decoder.NewGenerator(model, ct)
	gen.MaxSteps = genMaxSteps

	rng := rand.New(rand.NewSource(genSeed))
	if genSeed == 0 {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	mode := viper.GetString("model.mode")
	logger.Sugar().Infow("decoding", "count", genCount, "mode", mode)
	for i := 0; i < genCount; i++ {
		idx := rng.Intn(wt.Count())
		word := wt.IndexToWord[idx]
		emb, err := wt.EmbeddingAt(idx)
		if err != nil {
			return err
		}
		decoded, err := gen.Generate(emb)
		if errors.Is(err, decoder.ErrMaxSteps) {
			fmt.Printf("%-20s -> %s... (truncated at %d steps)\n", word, decoded, genMaxSteps)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Printf("%-20s -> %q\n", word, decoded)
	}
	return nil
}
