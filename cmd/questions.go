package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hagzilla/apiserver/internal/db"
	"github.com/hagzilla/apiserver/internal/logger"
	"github.com/hagzilla/apiserver/internal/services"
	"github.com/hagzilla/apiserver/internal/storage"
	"github.com/hagzilla/apiserver/internal/store"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Manage the quiz question bank",
}

var (
	importFile   string
	importObject string
)

var questionsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a question bank CSV from a local file or object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (importFile == "") == (importObject == "") {
			return errors.New("exactly one of --file or --object is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer conn.Close()

		var objects storage.ObjectStorage
		if importObject != "" {
			objects, err = storage.Open(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			defer objects.Close()
		}

		importer := services.NewQuestionImporter(store.NewQuestionRepository(conn), objects)

		var n int
		source := importFile
		if importFile != "" {
			n, err = importer.ImportFile(ctx, importFile)
		} else {
			source = objects.Bucket() + "/" + importObject
			n, err = importer.ImportObject(ctx, importObject)
		}
		if err != nil {
			return fmt.Errorf("import %s: %w", source, err)
		}

		logger.Get().Info().Str("source", source).Int("questions", n).Msg("question bank imported")
		return nil
	},
}

var (
	uploadFile string
	uploadKey  string
)

var questionsUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Validate a question bank CSV and store it in object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		objects, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer objects.Close()

		key := uploadKey
		if key == "" {
			key = filepath.Base(uploadFile)
		}

		if err := services.NewQuestionImporter(nil, objects).Upload(ctx, uploadFile, key); err != nil {
			return fmt.Errorf("upload %s: %w", uploadFile, err)
		}

		logger.Get().Info().Str("bucket", objects.Bucket()).Str("key", key).Msg("question bank uploaded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(questionsCmd)
	questionsCmd.AddCommand(questionsImportCmd, questionsUploadCmd)

	questionsImportCmd.Flags().StringVar(&importFile, "file", "", "path to a local CSV file")
	questionsImportCmd.Flags().StringVar(&importObject, "object", "", "object key in the configured bucket")

	questionsUploadCmd.Flags().StringVar(&uploadFile, "file", "", "path to a local CSV file")
	questionsUploadCmd.Flags().StringVar(&uploadKey, "key", "", "object key, defaults to the file name")
	_ = questionsUploadCmd.MarkFlagRequired("file")
}
