package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/23skdu/longbow-bodkin/internal/arrowclient"
	"github.com/23skdu/longbow-bodkin/internal/audit"
	"github.com/23skdu/longbow-bodkin/internal/config"
	"github.com/23skdu/longbow-bodkin/internal/embedding"
	"github.com/23skdu/longbow-bodkin/internal/head"
	"github.com/23skdu/longbow-bodkin/internal/logger"
	"github.com/23skdu/longbow-bodkin/internal/tensor"
	"github.com/23skdu/longbow-bodkin/internal/tokenizer"
)

var (
	text        = flag.String("text", "first citizen", "Input text to attend over (also defines the vocabulary)")
	dim         = flag.Int("dim", 32, "Embedding dimension (C)")
	headDim     = flag.Int("head-dim", 16, "Attention head dimension (H)")
	seed        = flag.Int64("seed", 1337, "Seed for embedding and projection init")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat   = flag.String("log-format", "console", "Log format (console, json)")
	metricsAddr = flag.String("metrics", "", "Address to serve Prometheus metrics, e.g. :9090 (empty disables)")
	longbowAddr = flag.String("longbow", "", "Longbow Flight host to push context vectors to (empty disables)")
	longbowPort = flag.Int("longbow-port", arrowclient.DefaultPort, "Longbow Flight data port")
)

func main() {
	flag.Parse()
	logger.Setup(*logLevel, *logFormat)

	if *text == "" {
		fmt.Println("Error: --text must not be empty")
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.Config{
		Dim:         *dim,
		HeadDim:     *headDim,
		ContextLen:  len([]rune(*text)),
		Seed:        *seed,
		LogLevel:    *logLevel,
		LogFormat:   *logFormat,
		MetricsAddr: *metricsAddr,
		LongbowAddr: *longbowAddr,
	}
	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal("invalid config", "err", err)
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	tok, err := tokenizer.NewFromCorpus(*text)
	if err != nil {
		logger.Log.Fatal("failed to build tokenizer", "err", err)
	}
	logger.Log.Info("tokenizer ready", "vocab_size", tok.VocabSize())

	ids, err := tok.Encode(*text)
	if err != nil {
		logger.Log.Fatal("failed to encode text", "err", err)
	}

	emb, err := embedding.New(tok.VocabSize(), cfg.ContextLen, cfg.Dim, cfg.Seed)
	if err != nil {
		logger.Log.Fatal("failed to build embedder", "err", err)
	}
	x, err := emb.Embed([][]int{ids})
	if err != nil {
		logger.Log.Fatal("failed to embed tokens", "err", err)
	}

	h, err := head.New(cfg.Dim, cfg.HeadDim, cfg.Seed)
	if err != nil {
		logger.Log.Fatal("failed to build attention head", "err", err)
	}

	start := time.Now()
	out, weights, err := h.Attend(x)
	if err != nil {
		logger.Log.Fatal("forward pass failed", "err", err)
	}
	logger.Log.Info("forward pass done",
		"seq_len", len(ids), "dim", cfg.Dim, "head_dim", cfg.HeadDim,
		"duration", time.Since(start))

	res := audit.AuditWeights(weights)
	if !res.Clean(1e-5) {
		logger.Log.Warn("attention audit flagged violations",
			"max_row_sum_error", res.MaxRowSumError,
			"causal_leaks", res.CausalLeaks,
			"nans", res.NumNaNs, "infs", res.NumInfs)
	}
	stats := audit.Stats("output", out.Data())
	logger.Log.Debug("output stats",
		"mean", stats.Mean, "variance", stats.Variance,
		"min", stats.Min, "max", stats.Max)

	printAttentionTable(*text, ids, weights)

	if cfg.LongbowAddr != "" {
		pushToLongbow(cfg.LongbowAddr, *longbowPort, out)
	}
}

// printAttentionTable shows, for each query position, how its attention
// mass is spread over the visible prefix.
func printAttentionTable(text string, ids []int, weights *tensor.Tensor) {
	runes := []rune(text)
	fmt.Println()
	for i := range ids {
		row := weights.Row(0, i)
		fmt.Printf("%3d %q <-", i, runes[i])
		for j := 0; j <= i; j++ {
			fmt.Printf(" %q:%.3f", runes[j], row[j])
		}
		fmt.Println()
	}
	fmt.Println()
}

func pushToLongbow(host string, port int, out *tensor.Tensor) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fc := arrowclient.NewFlightClient(host, port)
	if err := fc.Connect(ctx); err != nil {
		logger.Log.Error("failed to connect to Longbow", "host", host, "err", err)
		return
	}
	defer fc.Close()

	batch, err := arrowclient.FromOutput(out, "bodkin-demo")
	if err != nil {
		logger.Log.Error("failed to build context batch", "err", err)
		return
	}
	if err := fc.PutContexts(ctx, batch); err != nil {
		logger.Log.Error("failed to push contexts", "err", err)
		return
	}
	logger.Log.Info("pushed context vectors", "count", len(batch.Vectors), "host", host)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
	logger.Log.Info("metrics serving", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Log.Error("metrics server error", "err", err)
	}
}
