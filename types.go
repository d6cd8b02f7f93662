package contexthelper

import (
	"github.com/jward/contexthelper/internal/config"
	"github.com/jward/contexthelper/internal/lookup"
	"github.com/jward/contexthelper/internal/store"
	"github.com/jward/contexthelper/internal/threadtree"
)

// Public type aliases for internal types used in the Helper API.
// These are Go type aliases (=) so no conversion is needed.

type Config = config.Config
type Backend = config.Backend
type Thread = lookup.Thread
type Answer = lookup.Answer
type LookupClient = lookup.Client
type Store = store.Store
type SessionRecord = store.Session
type SessionThread = store.SessionThread
type Click = store.Click
type QueryCount = store.QueryCount
type Tree = threadtree.Tree
type Node = threadtree.Node
type ThreadsNode = threadtree.ThreadsNode
type ThreadNode = threadtree.ThreadNode
type AnswerNode = threadtree.AnswerNode
type FetchState = threadtree.State

const (
	BackendScraping = config.BackendScraping
	BackendKeyedAPI = config.BackendKeyedAPI
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config { return config.DefaultConfig() }

// LoadConfig reads configuration from defaults, an optional file, .env and
// CONTEXTHELPER_* environment variables.
func LoadConfig(path string) (Config, error) { return config.Load(path) }
