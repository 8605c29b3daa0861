package uploadcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"qapp_backend/internal/uploader"
	"qapp_backend/platform/logger"

	"github.com/spf13/cobra"
)

type uploadOptions struct {
	manifest   string
	apiURL     string
	token      string
	compensate bool
	noCompress bool
	timeout    time.Duration
	jsonOutput bool
}

func newUploadCmd(env Environment) *cobra.Command {
	opts := &uploadOptions{}

	cmd := &cobra.Command{
		Use:   "upload --manifest paper.yaml [image...]",
		Short: "Upload a question paper",
		Long: `Upload a question paper described by a YAML manifest.

Images are compressed, uploaded in order and attached to a new question.
Up to 10 JPEG, PNG or WebP images are accepted.

Examples:
  qapp-upload upload --manifest mth101.yaml page1.jpg page2.jpg
  QAPP_TOKEN=... qapp-upload upload --manifest csc201.yaml --no-compress scan.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd.Context(), env, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.manifest, "manifest", "m", "", "Path to the YAML manifest")
	cmd.Flags().StringVar(&opts.apiURL, "api", envOr(env, envAPIURL, defaultAPIURL), "QApp API base URL")
	cmd.Flags().StringVar(&opts.token, "token", envOr(env, envToken, ""), "Access token (defaults to $QAPP_TOKEN)")
	cmd.Flags().BoolVar(&opts.compensate, "compensate", true, "Delete uploaded images when the upload fails")
	cmd.Flags().BoolVar(&opts.noCompress, "no-compress", false, "Upload images as they are")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Overall timeout")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the created question as JSON")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func runUpload(ctx context.Context, env Environment, opts *uploadOptions, args []string) error {
	if opts.token == "" {
		return fmt.Errorf("an access token is required: pass --token or set %s", envToken)
	}

	manifest, err := LoadManifest(opts.manifest)
	if err != nil {
		return err
	}
	items, err := readItems(manifest.ImagePaths(args))
	if err != nil {
		return err
	}

	log := logger.NewWithWriter(envOr(env, envEnv, "production"), env.Stderr)

	api := uploader.NewAPIClient(opts.apiURL, opts.token, nil)
	deps := uploader.Dependencies{
		Compressor: uploader.NewImagingCompressor(),
		Presigner:  api,
		Store:      uploader.NewObjectStoreClient(nil),
		Records:    api,
	}
	if opts.noCompress {
		deps.Compressor = uploader.PassthroughCompressor{}
	}
	if opts.compensate {
		deps.Compensator = api
	}

	orchestrator, err := uploader.New(deps, uploader.Options{Logger: log})
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	record, err := orchestrator.Upload(ctx, items, manifest.Metadata(), progressPrinter(env.Stderr))
	if err != nil {
		return describeFailure(err)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}
	_, _ = fmt.Fprintln(env.Stdout, record.ID)
	return nil
}

func newValidateCmd(env Environment) *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "validate --manifest paper.yaml [image...]",
		Short: "Check a manifest and its images without uploading",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			items, err := readItems(manifest.ImagePaths(args))
			if err != nil {
				return err
			}
			api := uploader.NewAPIClient(defaultAPIURL, "", nil)
			orchestrator, err := uploader.New(uploader.Dependencies{Presigner: api, Store: uploader.NewObjectStoreClient(nil), Records: api}, uploader.Options{})
			if err != nil {
				return err
			}
			if err := orchestrator.Validate(items, manifest.Metadata()); err != nil {
				return describeFailure(err)
			}
			_, _ = fmt.Fprintf(env.Stdout, "ok: %d images, %q\n", len(items), manifest.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Path to the YAML manifest")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func readItems(paths []string) ([]uploader.Item, error) {
	items := make([]uploader.Item, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		items = append(items, uploader.Item{
			Name:        filepath.Base(p),
			ContentType: http.DetectContentType(data),
			Data:        data,
		})
	}
	return items, nil
}

func progressPrinter(w io.Writer) uploader.Observer {
	return uploader.ObserverFunc(func(s uploader.Snapshot) {
		if s.Phase == uploader.PhaseFailed {
			return
		}
		_, _ = fmt.Fprintf(w, "[%3.0f%%] %s\n", s.Progress, s.Phase)
	})
}

// describeFailure prefixes the error with a hint for the failing stage.
func describeFailure(err error) error {
	var presignErr *uploader.AuthOrPresignError
	if errors.As(err, &presignErr) && presignErr.Unauthorized() {
		return fmt.Errorf("not signed in or token expired: %w", err)
	}
	if stage, ok := uploader.StageOf(err); ok {
		return fmt.Errorf("upload failed at %s: %w", stage, err)
	}
	return err
}
