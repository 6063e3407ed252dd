package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"charrnn/vocab"
)

var (
	gloveFile string
	outPrefix string
	lowercase bool
	uppercase bool
	extraCh   string
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Build vocabulary artifacts from a glove word-vector file",
	Long: `Reads a glove-format text file, keeps only the words spelled with
the selected letter set, and writes the two vocabulary artifacts the decoder
consumes: <out>_words.gob (word table plus embedding matrix) and
<out>_chars.gob (character table including the START/END sentinels).`,
	RunE: runPreprocess,
}

func init() {
	preprocessCmd.Flags().StringVar(&gloveFile, "glove", "glove.6B/glove.6B.50d.txt", "glove word-vector text file")
	preprocessCmd.Flags().StringVar(&outPrefix, "out", "pickled_word_vecs/glove50d", "output artifact path prefix")
	preprocessCmd.Flags().BoolVar(&lowercase, "lowercase", true, "include lowercase ascii letters")
	preprocessCmd.Flags().BoolVar(&uppercase, "uppercase", false, "include uppercase ascii letters")
	preprocessCmd.Flags().StringVar(&extraCh, "chars", "", "additional characters to allow")
	rootCmd.AddCommand(preprocessCmd)
}

func letterSet() string {
	letters := extraCh
	if lowercase {
		letters += "abcdefghijklmnopqrstuvwxyz"
	}
	if uppercase {
		letters += "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	}
	return letters
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	logger, err := buildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	vectors, err := vocab.LoadGloveModel(gloveFile, logger)
	if err != nil {
		return err
	}

	letters := letterSet()
	if letters == "" {
		return fmt.Errorf("empty letter set: enable --lowercase/--uppercase or pass --chars")
	}
	wt, ct, err := vocab.Build(vectors, letters, logger)
	if err != nil {
		return err
	}

	if err := vocab.SaveTables(outPrefix, wt, ct); err != nil {
		return err
	}
	logger.Info("saved vocabulary artifacts",
		zap.String("words", vocab.WordArtifactPath(outPrefix)),
		zap.String("chars", vocab.CharArtifactPath(outPrefix)),
		zap.Int("word_count", wt.Count()),
		zap.Int("char_count", ct.Size()),
	)
	return nil
}
