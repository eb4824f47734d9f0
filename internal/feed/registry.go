package feed

import (
	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/feed/arbeitnow"
	"jobfeed-engine/internal/feed/jobicy"
	"jobfeed-engine/internal/feed/remotive"
	"jobfeed-engine/internal/feed/util"
)

// Kind pairs a normalizer with the identity fallback its feed uses unless a
// source overrides it.
type Kind struct {
	Normalize Normalizer
	Fallback  util.Fallback
}

var kinds = map[string]Kind{
	config.KindArbeitnow: {Normalize: arbeitnow.Normalize, Fallback: util.FallbackDrop},
	config.KindRemotive:  {Normalize: remotive.Normalize, Fallback: util.FallbackDrop},
	config.KindJobicy:    {Normalize: jobicy.Normalize, Fallback: util.FallbackRandom},
}

func LookupKind(kind string) (Kind, bool) {
	k, ok := kinds[kind]
	return k, ok
}
