// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes election results and geography as a JSON API.
package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/izbori/analysis"
	"github.com/jcodagnone/izbori/elections"
	"github.com/jcodagnone/izbori/geo"
	"github.com/jcodagnone/izbori/search"
	"github.com/jcodagnone/izbori/spatial"
	"github.com/jcodagnone/izbori/utils/textutils"
)

const (
	defaultRings = 1
	maxRings     = 10
	defaultLastN = 3
)

var errBadParameter = errors.New("bad parameter")

type Server struct {
	svc      *elections.Service
	geo      *geo.Dataset
	parties  *elections.PartyTable
	searcher *search.Searcher
}

// NewServer wires the API. parties may be nil when no party table is
// available; /ns/parties then answers 404.
func NewServer(svc *elections.Service, ds *geo.Dataset, parties *elections.PartyTable) *Server {
	return &Server{
		svc:      svc,
		geo:      ds,
		parties:  parties,
		searcher: search.NewSearcher(search.DatasetLoader(ds)),
	}
}

// Handler returns the router with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.Default()
	r.Use(allowAnyOrigin)

	r.GET("/", s.health)

	ns := r.Group("/ns")
	ns.GET("/elections", s.listElections)
	ns.GET("/parties", s.listParties)
	ns.GET("/geo/municipalities", s.municipalitiesGeoJSON)
	ns.GET("/geo/settlements", s.settlementsGeoJSON)
	ns.GET("/geo/places", s.listPlaces)
	ns.GET("/geo/places/near", s.nearbyPlaces)
	ns.GET("/geo/locate", s.locate)
	ns.GET("/data/:election_id", s.electionData)
	ns.GET("/map/:election_id", s.electionMap)
	ns.GET("/stats/national/:election_id", s.nationalStats)
	ns.GET("/stats/municipalities/:election_id", s.municipalityStats)
	ns.GET("/stats/top-parties", s.topParties)
	ns.GET("/history/:region_type/:region_id", s.history)
	ns.GET("/search", s.search)
	ns.GET("/analysis/variability", s.variability)
	ns.POST("/cache/clear", s.clearCache)

	return r
}

func (s *Server) Run(addr string) error {
	return s.Handler().Run(addr)
}

func allowAnyOrigin(ctx *gin.Context) {
	ctx.Header("Access-Control-Allow-Origin", "*")
	ctx.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	ctx.Header("Access-Control-Allow-Headers", "*")

	if ctx.Request.Method == http.MethodOptions {
		ctx.AbortWithStatus(http.StatusNoContent)

		return
	}

	ctx.Next()
}

// fail maps domain errors to status codes.
func fail(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, elections.ErrUnknownElection), errors.Is(err, elections.ErrSourceUnavailable):
		status = http.StatusNotFound
	case errors.Is(err, errBadParameter),
		errors.Is(err, elections.ErrUnknownGranularity),
		errors.Is(err, elections.ErrMissingKey):
		status = http.StatusBadRequest
	default:
		log.Printf("%s %s: %v", ctx.Request.Method, ctx.Request.URL.Path, err)
	}

	ctx.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Bulgarian Elections API",
		"endpoints": []string{
			"/ns",
		},
	})
}

type electionInfo struct {
	elections.Election

	FormattedDate string `json:"formattedDate"`
}

func (s *Server) listElections(ctx *gin.Context) {
	catalog := s.svc.Catalog()
	all := catalog.All()

	out := make([]electionInfo, 0, len(all))
	for _, e := range all {
		out = append(out, electionInfo{Election: e, FormattedDate: catalog.FormattedDate(e.ID)})
	}

	ctx.JSON(http.StatusOK, out)
}

func (s *Server) listParties(ctx *gin.Context) {
	if s.parties == nil {
		fail(ctx, elections.ErrSourceUnavailable)

		return
	}

	ctx.JSON(http.StatusOK, s.parties)
}

func (s *Server) municipalitiesGeoJSON(ctx *gin.Context) {
	fc, err := s.geo.Municipalities(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, fc)
}

func (s *Server) settlementsGeoJSON(ctx *gin.Context) {
	fc, err := s.geo.Settlements(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, fc)
}

func (s *Server) listPlaces(ctx *gin.Context) {
	places, err := s.geo.Places(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, places.All())
}

func queryPoint(ctx *gin.Context) (spatial.Point, error) {
	lat, err := strconv.ParseFloat(ctx.Query("lat"), 64)
	if err != nil {
		return spatial.Point{}, fmtBad("lat", ctx.Query("lat"))
	}

	lng, err := strconv.ParseFloat(ctx.Query("lng"), 64)
	if err != nil {
		return spatial.Point{}, fmtBad("lng", ctx.Query("lng"))
	}

	p := spatial.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return spatial.Point{}, fmtBad("lat,lng", p.String())
	}

	return p, nil
}

func (s *Server) nearbyPlaces(ctx *gin.Context) {
	p, err := queryPoint(ctx)
	if err != nil {
		fail(ctx, err)

		return
	}

	rings, err := queryInt(ctx, "rings", defaultRings)
	if err != nil {
		fail(ctx, err)

		return
	}

	if rings < 0 || rings > maxRings {
		fail(ctx, fmtBad("rings", ctx.Query("rings")))

		return
	}

	places, err := s.geo.Places(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)

		return
	}

	nearby, err := places.Nearby(p, rings)
	if err != nil {
		fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, nearby)
}

func (s *Server) locate(ctx *gin.Context) {
	p, err := queryPoint(ctx)
	if err != nil {
		fail(ctx, err)

		return
	}

	locator, err := s.geo.Locator(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)

		return
	}

	entity, ok := locator.Locate(p.Lat, p.Lng)
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no settlement at " + p.String()})

		return
	}

	ctx.JSON(http.StatusOK, entity)
}

func queryGranularity(ctx *gin.Context, name string) (elections.Granularity, error) {
	return elections.ParseGranularity(ctx.DefaultQuery(name, elections.Settlement.String()))
}

// regionResult is the per region shape served by /data.
type regionResult struct {
	ID      string                `json:"id"`
	Total   int64                 `json:"total"`
	Results *elections.PartyVotes `json:"results"`
	Meta    regionMeta            `json:"meta"`
}

type regionMeta struct {
	Activity float64 `json:"activity"`
	Eligible int64   `json:"eligible"`
}

func (s *Server) electionData(ctx *gin.Context) {
	g, err := queryGranularity(ctx, "region_type")
	if err != nil {
		fail(ctx, err)

		return
	}

	filter := elections.Filter{
		RegionID: ctx.Query("region_id"),
		Parties:  textutils.SplitList(ctx.Query("parties")),
	}

	records, err := s.svc.LoadResults(ctx.Request.Context(), ctx.Param("election_id"), g, filter)
	if err != nil {
		fail(ctx, err)

		return
	}

	out := make(map[string]regionResult, len(records))

	for _, r := range records {
		key := r.ID
		if g == elections.Municipality && r.Name != "" {
			key = r.Name
		}

		out[key] = regionResult{
			ID:      key,
			Total:   r.TotalVotes,
			Results: r.PartyVotes,
			Meta:    regionMeta{Activity: r.Turnout, Eligible: r.EligibleVoters},
		}
	}

	ctx.JSON(http.StatusOK, out)
}

func (s *Server) electionMap(ctx *gin.Context) {
	g, err := queryGranularity(ctx, "region_type")
	if err != nil {
		fail(ctx, err)

		return
	}

	enriched, err := s.geo.Map(ctx.Request.Context(), s.svc, ctx.Param("election_id"), g)
	if err != nil {
		fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, geo.Collection(enriched))
}

// nationalStatsResponse is the shape served by /stats/national.
type nationalStatsResponse struct {
	TotalVotes     int64                   `json:"totalVotes"`
	Activity       float64                 `json:"activity"`
	EligibleVoters int64                   `json:"eligibleVoters"`
	TopParties     []elections.RankedParty `json:"topParties"`
}

func (s *Server) nationalStats(ctx *gin.Context) {
	stats, err := s.svc.NationalStats(ctx.Request.Context(), ctx.Param("election_id"))
	if err != nil {
		fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, nationalStatsResponse{
		TotalVotes:     stats.TotalVotes,
		Activity:       stats.Turnout,
		EligibleVoters: stats.EligibleVoters,
		TopParties:     stats.TopParties,
	})
}

func (s *Server) municipalityStats(ctx *gin.Context) {
	records, err := s.geo.MunicipalityResults(ctx.Request.Context(), s.svc, ctx.Param("election_id"))
	if err != nil {
		fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, records)
}

func (s *Server) topParties(ctx *gin.Context) {
	n, err := queryInt(ctx, "n", defaultLastN)
	if err != nil {
		fail(ctx, err)

		return
	}

	limit, err := queryInt(ctx, "limit", elections.DefaultTopParties)
	if err != nil {
		fail(ctx, err)

		return
	}

	names, err := s.svc.TopPartiesFromLastN(ctx.Request.Context(), n, limit)
	if err != nil {
		fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, names)
}

func (s *Server) history(ctx *gin.Context) {
	g, err := elections.ParseGranularity(ctx.Param("region_type"))
	if err != nil {
		fail(ctx, err)

		return
	}

	entries, err := s.svc.History(ctx.Request.Context(), g, ctx.Param("region_id"))
	if err != nil {
		fail(ctx, err)

		return
	}

	if entries == nil {
		entries = []elections.HistoryEntry{}
	}

	ctx.JSON(http.StatusOK, entries)
}

func (s *Server) search(ctx *gin.Context) {
	entries, err := s.searcher.SearchRemote(ctx.Request.Context(), ctx.Query("q"))
	if err != nil {
		fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, entries)
}

func (s *Server) variability(ctx *gin.Context) {
	opts := analysis.DefaultOptions()

	var err error

	if opts.TopParties, err = queryInt(ctx, "top", opts.TopParties); err != nil {
		fail(ctx, err)

		return
	}

	if opts.Limit, err = queryInt(ctx, "limit", opts.Limit); err != nil {
		fail(ctx, err)

		return
	}

	if v := ctx.Query("threshold"); v != "" {
		if opts.Threshold, err = strconv.ParseFloat(v, 64); err != nil {
			fail(ctx, fmtBad("threshold", v))

			return
		}
	}

	results, err := analysis.LoadElections(ctx.Request.Context(), s.svc, ctx.DefaultQuery("type", elections.TypeNationalAssembly))
	if err != nil {
		fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, analysis.Analyze(results, opts))
}

func (s *Server) clearCache(ctx *gin.Context) {
	s.svc.ClearCache()
	s.geo.Clear()
	s.searcher.Clear()

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}
