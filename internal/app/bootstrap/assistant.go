package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/klinik-awan/internal/assistant"
	appconfig "github.com/wolfman30/klinik-awan/internal/config"
	"github.com/wolfman30/klinik-awan/pkg/logging"
)

// AWSLoader resolves the AWS SDK configuration; cmd/mainconfig provides it.
type AWSLoader func(ctx context.Context, cfg *appconfig.Config) (aws.Config, error)

// BuildCompleter wires the completion provider named by LLM_PROVIDER. A
// provider that cannot be configured is replaced by one that fails every
// turn with a service-call error, so the desk keeps working and the chat
// shows why.
func BuildCompleter(ctx context.Context, cfg *appconfig.Config, loadAWS AWSLoader, logger *logging.Logger) (assistant.Completer, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	noop := func() {}

	switch cfg.LLMProvider {
	case "", "gemini":
		if err := assistant.ValidateGeminiKey(cfg.GeminiAPIKey); err != nil {
			logger.Warn("gemini api key missing or invalid; assistant disabled", "error", err)
			return unconfiguredCompleter{err: err}, noop, nil
		}
		completer, err := assistant.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using gemini completer", "model", cfg.GeminiModelID)
		return completer, func() { _ = completer.Close() }, nil

	case "bedrock":
		model := strings.TrimSpace(cfg.BedrockModelID)
		if model == "" {
			logger.Warn("no Bedrock model configured; assistant disabled")
			return unconfiguredCompleter{err: errors.New("BEDROCK_MODEL_ID is not set")}, noop, nil
		}
		if loadAWS == nil {
			return nil, nil, fmt.Errorf("bootstrap: aws loader is required for bedrock")
		}
		awsCfg, err := loadAWS(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		logger.Info("using bedrock completer", "model", model, "region", cfg.AWSRegion)
		return assistant.NewBedrockCompleter(bedrockruntime.NewFromConfig(awsCfg), model), noop, nil
	}
	return nil, nil, fmt.Errorf("bootstrap: unknown LLM_PROVIDER %q", cfg.LLMProvider)
}

type unconfiguredCompleter struct {
	err error
}

func (c unconfiguredCompleter) Converse(context.Context, []assistant.Message, string) (assistant.Reply, error) {
	return assistant.Reply{}, &assistant.CompletionError{Kind: assistant.KindServiceCall, Err: c.err}
}
