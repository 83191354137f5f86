package model

// Stage identifies one named step of the pipeline.
type Stage string

const (
	// StagePending labels errors raised before any stage ran.
	StagePending    Stage = "pending"
	StageDiscovery  Stage = "discovery"
	StageResearch   Stage = "research"
	StageExtraction Stage = "extraction"
	StageCrawl      Stage = "crawl"
	StageAnalysis   Stage = "analysis"
)

// stageOrder is the canonical pipeline order.
var stageOrder = []Stage{StageDiscovery, StageResearch, StageExtraction, StageCrawl, StageAnalysis}

// Stages returns the stage sequence for a job.
func Stages(autoDiscovery bool) []Stage {
	if autoDiscovery {
		return append([]Stage(nil), stageOrder...)
	}
	return append([]Stage(nil), stageOrder[1:]...)
}

// Index returns the stage position in pipeline order, or -1.
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Prerequisites returns the stages that must finish before s may start.
func (s Stage) Prerequisites(autoDiscovery bool) []Stage {
	switch s {
	case StageResearch:
		if autoDiscovery {
			return []Stage{StageDiscovery}
		}
		return nil
	case StageExtraction, StageCrawl:
		return []Stage{StageResearch}
	case StageAnalysis:
		return []Stage{StageExtraction, StageCrawl}
	default:
		return nil
	}
}
