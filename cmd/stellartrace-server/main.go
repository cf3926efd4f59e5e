// Command stellartrace-server exposes the search engine over HTTP:
// GET /search, POST /adddoc, GET /autocomplete, with an OPTIONS /adddoc
// CORS preflight response.
package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jessevdk/go-flags"

	"github.com/fromearth03/stellartrace"
)

type serverOptions struct {
	Host        string `long:"host" description:"address to listen on" value-name:"host" default:"0.0.0.0"`
	Port        string `long:"port" description:"port to listen on" value-name:"port" default:"8080"`
	Corpus      string `long:"corpus" description:"path to the raw JSONL corpus" value-name:"path" required:"true"`
	LexiconPath string `long:"lexicon" description:"path to the lexicon file" value-name:"path" required:"true"`
	ForwardPath string `long:"forward" description:"path to the forward index file" value-name:"path" required:"true"`
	DocMapPath  string `long:"docmap" description:"path to the AUC.csv document map" value-name:"path" required:"true"`
	BarrelDir   string `long:"barrels" description:"path to the barrel directory" value-name:"dir" required:"true"`
	Fallback    bool   `long:"enable-fallback" description:"enable stem/edit-distance query fallback"`
	Help        bool   `long:"help" description:"show this help"`
}

func main() {
	var opts serverOptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[options]"
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	engine, err := stellartrace.LoadEngine(stellartrace.EngineConfig{
		CorpusPath:  opts.Corpus,
		LexiconPath: opts.LexiconPath,
		ForwardPath: opts.ForwardPath,
		DocMapPath:  opts.DocMapPath,
		BarrelDir:   opts.BarrelDir,
		Options:     stellartrace.QueryOptions{EnableFallback: opts.Fallback},
	})
	if err != nil {
		log.Fatalf("load engine: %v", err)
	}

	autocomplete := stellartrace.BuildAutocomplete(engine.Lexicon)

	r := gin.Default()

	// nquire-style: GET /search?q=your+query
	r.GET("/search", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")

		query := c.Query("q")
		if query == "" {
			c.JSON(http.StatusOK, []stellartrace.SearchResult{})
			return
		}

		start := time.Now()
		results, err := engine.Search(query)
		slog.Info("query served", slog.String("q", query), slog.Duration("took", time.Since(start)))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if results == nil {
			results = []stellartrace.SearchResult{}
		}
		c.JSON(http.StatusOK, results)
	})

	r.OPTIONS("/adddoc", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	r.POST("/adddoc", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")

		var doc map[string]any
		if err := c.ShouldBindJSON(&doc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
			return
		}

		edid, err := engine.AddDocument(doc)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "id": edid})
	})

	r.GET("/autocomplete", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")

		prefix := c.Query("q")
		suggestions := autocomplete.Suggest(prefix)
		if suggestions == nil {
			suggestions = []string{}
		}
		c.JSON(http.StatusOK, suggestions)
	})

	addr := opts.Host + ":" + opts.Port
	slog.Info("stellartrace server listening", slog.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
