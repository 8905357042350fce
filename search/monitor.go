package search

import "github.com/poiesic/pairfinder/core"

// SearchMonitor receives callbacks at each stage of the search process.
type SearchMonitor interface {
	Start(query *core.SearchQuery)
	AfterDetect(language core.Language)
	AfterEmbed(dimensions int)
	AfterRank(ranked []core.RankedID)
	Finish(result *core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ *core.SearchQuery)   {}
func (n *noopMonitor) AfterDetect(_ core.Language) {}
func (n *noopMonitor) AfterEmbed(_ int)            {}
func (n *noopMonitor) AfterRank(_ []core.RankedID) {}
func (n *noopMonitor) Finish(_ *core.SearchResult) {}
