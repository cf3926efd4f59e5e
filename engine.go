package stellartrace

import "log/slog"

// Engine wires together the loaded Lexicon, DocMap, BarrelStore and the
// paths required to append to them, plus a DynamicIndexer serializing
// ingestion. It is constructed once at startup and shared by reference
// across query and ingest workers (spec §9 Design Notes: "Replace with a
// single explicit engine value created at startup, passed by reference
// to workers"). Grounded on orig/main.cpp's SearchEngine object
// (loadLexicon/loadDocMap/loadBarrels/setDatasetPath).
type Engine struct {
	Lexicon *Lexicon
	DocMap  *DocMap
	Barrels *BarrelStore
	Indexer *DynamicIndexer

	CorpusPath  string
	LexiconPath string
	ForwardPath string
	DocMapPath  string
	BarrelDir   string

	Options QueryOptions
}

// EngineConfig names the on-disk paths an Engine is assembled from.
type EngineConfig struct {
	CorpusPath  string
	LexiconPath string
	ForwardPath string
	DocMapPath  string
	BarrelDir   string
	Options     QueryOptions
}

// LoadEngine loads the lexicon, docmap and barrel store from cfg's paths
// and wires a DynamicIndexer against them. Any of the three persistent
// stores may be missing on disk (a fresh deployment); LoadLexicon and
// LoadDocMap already tolerate that, and an absent barrel directory
// yields an empty BarrelStore.
func LoadEngine(cfg EngineConfig) (*Engine, error) {
	lex, err := LoadLexicon(cfg.LexiconPath)
	if err != nil {
		return nil, err
	}

	dm, err := LoadDocMap(cfg.DocMapPath)
	if err != nil {
		return nil, err
	}

	bs, err := LoadBarrelStore(cfg.BarrelDir)
	if err != nil {
		return nil, err
	}

	indexer := NewDynamicIndexer(cfg.CorpusPath, cfg.LexiconPath, cfg.ForwardPath, cfg.DocMapPath, cfg.BarrelDir, lex, dm, bs)

	slog.Info("engine ready",
		slog.Int("lexicon_words", lex.Len()),
		slog.Int("documents", dm.Len()),
	)

	return &Engine{
		Lexicon:     lex,
		DocMap:      dm,
		Barrels:     bs,
		Indexer:     indexer,
		CorpusPath:  cfg.CorpusPath,
		LexiconPath: cfg.LexiconPath,
		ForwardPath: cfg.ForwardPath,
		DocMapPath:  cfg.DocMapPath,
		BarrelDir:   cfg.BarrelDir,
		Options:     cfg.Options,
	}, nil
}

// Search runs a query against the engine's current state.
func (e *Engine) Search(queryString string) ([]SearchResult, error) {
	return Search(queryString, e.Lexicon, e.Barrels, e.DocMap, e.CorpusPath, e.Options)
}

// AddDocument ingests a new document through the engine's DynamicIndexer.
func (e *Engine) AddDocument(doc map[string]any) (string, error) {
	return e.Indexer.AddDocument(doc)
}
