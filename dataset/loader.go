package dataset

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/YuminosukeSato/decisionlab/pkg/log"
)

// DefaultCacheTTL is how long a parsed project table stays cached.
const DefaultCacheTTL = 10 * time.Minute

// Loader reads project tables from a directory and caches the parsed
// frames. Grid searches and validation curves read the same project many
// times. Frames are shared between callers and must not be modified.
type Loader struct {
	dir    string
	cache  *cache.Cache
	logger log.Logger
}

// NewLoader creates a loader for dir. A ttl <= 0 uses DefaultCacheTTL.
func NewLoader(dir string, ttl time.Duration) *Loader {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Loader{
		dir:    dir,
		cache:  cache.New(ttl, ttl*2),
		logger: log.GetLoggerWithName("dataset.Loader"),
	}
}

// Dir returns the directory the project tables are read from.
func (l *Loader) Dir() string {
	return l.dir
}

// Path returns the table file of project.
func (l *Loader) Path(project string) string {
	return ProjectFile(l.dir, project)
}

// Load returns the parsed table of project.
func (l *Loader) Load(project string) (*Frame, error) {
	path := l.Path(project)
	if cached, found := l.cache.Get(path); found {
		if frame, ok := cached.(*Frame); ok {
			l.logger.Debug("Project table cache hit", log.ProjectKey, project, log.PathKey, path)
			return frame, nil
		}
	}

	start := time.Now()
	frame, err := Load(path)
	if err != nil {
		return nil, err
	}
	l.cache.Set(path, frame, cache.DefaultExpiration)
	l.logger.Debug("Project table loaded",
		log.OperationKey, log.OperationLoad,
		log.ProjectKey, project,
		log.PathKey, path,
		log.SamplesKey, frame.Len(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return frame, nil
}

// Flush drops every cached table.
func (l *Loader) Flush() {
	l.cache.Flush()
}
