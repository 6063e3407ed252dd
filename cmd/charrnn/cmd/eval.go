package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorgonia.org/tensor"

	"charrnn/decoder"
	"charrnn/training"
	"charrnn/vocab"
)

var (
	evalTables string
	evalWords  int
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Teacher-forced loss over the vocabulary",
	Long: `Loads the vocabulary artifacts, builds a decoder from the model
configuration and reports the teacher-forced cross-entropy and perplexity
over a slice of the vocabulary. The model is freshly initialized (parameter
persistence is out of scope), so this is a pipeline smoke test and a
baseline number, not a trained-model score.`,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalTables, "tables", "pickled_word_vecs/glove50d", "vocabulary artifact path prefix")
	evalCmd.Flags().IntVar(&evalWords, "words", 256, "number of vocabulary words to evaluate")
	rootCmd.AddCommand(evalCmd)
}

func modelConfig(charCount, wordDim int) decoder.Config {
	return decoder.Config{
		Mode:              viper.GetString("model.mode"),
		HiddenSize:        viper.GetInt("model.hidden_size"),
		CharCount:         charCount,
		CharEmbeddingSize: viper.GetInt("model.char_embedding_size"),
		WordEmbeddingSize: wordDim,
		Activation:        viper.GetString("model.activation"),
	}
}

func runEval(cmd *cobra.Command, args []string) error {
	logger, err := buildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	wt, err := vocab.LoadWordTable(evalTables)
	if err != nil {
		return err
	}
	ct, err := vocab.LoadCharTable(evalTables)
	if err != nil {
		return err
	}

	n := evalWords
	if n > wt.Count() {
		n = wt.Count()
	}
	words := make([]string, 0, n)
	for i := 0; i < n; i++ {
		words = append(words, wt.IndexToWord[i])
	}

	model, err := decoder.NewHeadDecoder(modelConfig(ct.Size(), wt.Dim()))
	if err != nil {
		return err
	}

	inputs, targets, err := training.TeacherPairs(ct, words)
	if err != nil {
		return err
	}
	packedIn, err := decoder.Pack(inputs)
	if err != nil {
		return err
	}
	packedTargets, err := decoder.Pack(targets)
	if err != nil {
		return err
	}

	embBacking := make([]float32, 0, n*wt.Dim())
	for _, w := range words {
		vec, err := wt.EmbeddingOf(w)
		if err != nil {
			return err
		}
		embBacking = append(embBacking, vec...)
	}
	embeddings := tensor.New(tensor.WithShape(n, wt.Dim()), tensor.WithBacking(embBacking))

	scores, _, err := model.Forward(embeddings, packedIn)
	if err != nil {
		return err
	}
	loss, err := training.CrossEntropy(scores, packedTargets)
	if err != nil {
		return err
	}
	logger.Info("teacher-forced evaluation",
		zap.Int("words", n),
		zap.String("mode", model.Kind().String()),
		zap.Float32("cross_entropy", loss),
		zap.Float32("perplexity", training.Perplexity(loss)),
	)
	return nil
}
