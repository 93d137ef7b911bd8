/* SPDX-License-Identifier: AGPL-3.0-or-later
 *
 * Zymatik Annonars - A read-optimized genomic variant annotation store.
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published
 * by the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package httpapi wires the query engine, the interval overlay, and the
// gene index into the HTTP surface. Every handler is a thin translation
// of query params into an internal/query or internal/interval call
// followed by c.JSON -- no business logic lives here.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zymatik-com/annonars/internal/buildinfo"
	"github.com/zymatik-com/annonars/internal/genes"
	"github.com/zymatik-com/annonars/internal/interval"
	"github.com/zymatik-com/annonars/internal/query"
)

// Release is every open resource for one genome release: one Dataset per
// named dataset, the SV interval overlay, and the gene lookup index.
type Release struct {
	Datasets   map[string]*query.Dataset
	SVOverlay  *interval.Overlay
	GeneIndex  *genes.Index
	SourceInfo map[string]string // dataset id -> x-created-from lineage string
}

// Server serves the annotation HTTP API over a fixed set of opened
// releases, shared read-only across every request goroutine.
type Server struct {
	releases map[string]*Release
	router   *gin.Engine
	srv      *http.Server
}

// NewServer builds the gin router and registers every route in the
// contract. releases is keyed by genome release name (e.g. "grch38").
func NewServer(releases map[string]*Release) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	s := &Server{releases: releases, router: router}
	s.routes()

	return s
}

func (s *Server) routes() {
	s.router.GET("/annos/variant", s.handleVariant)
	s.router.GET("/annos/range", s.handleRange)
	s.router.GET("/annos/db-info", s.handleDBInfo)
	s.router.GET("/genes/info", s.handleGeneInfo)
	s.router.GET("/genes/lookup", s.handleGeneLookup)
	s.router.GET("/genes/search", s.handleGeneSearch)
	s.router.GET("/api/v1/strucvars/clinvar/query", s.handleSVQuery)
	s.router.GET("/api/v1/versions", s.handleVersions)
}

// ServeHTTP lets Server stand in directly for its router, for tests and
// for embedding behind another http.Handler (e.g. in front of TLS).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the server on addr and blocks until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) release(c *gin.Context) (*Release, bool) {
	name := c.Query("genome_release")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "genome_release is required"})
		return nil, false
	}

	rel, ok := s.releases[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown genome_release %q", name)})
		return nil, false
	}

	return rel, true
}

func (s *Server) handleVariant(c *gin.Context) {
	rel, ok := s.release(c)
	if !ok {
		return
	}

	chrom := c.Query("chromosome")
	ref := c.Query("reference")
	alt := c.Query("alternative")
	pos, err := strconv.ParseInt(c.Query("pos"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pos must be an integer"})
		return
	}

	out := make(map[string]any, len(rel.Datasets))
	for id, ds := range rel.Datasets {
		rec, err := ds.VariantQuery(chrom, pos, ref, alt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		out[id] = rec
	}

	c.JSON(http.StatusOK, gin.H{
		"server_version": buildinfo.Version,
		"result":         out,
	})
}

func (s *Server) handleRange(c *gin.Context) {
	rel, ok := s.release(c)
	if !ok {
		return
	}

	chrom := c.Query("chromosome")
	start, err1 := strconv.ParseInt(c.Query("start"), 10, 64)
	stop, err2 := strconv.ParseInt(c.Query("stop"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start/stop must be integers"})
		return
	}

	out := make(map[string][]any, len(rel.Datasets))
	for id, ds := range rel.Datasets {
		recs, err := ds.RangeQuery(chrom, start, stop)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		out[id] = recs
	}

	c.JSON(http.StatusOK, gin.H{
		"server_version": buildinfo.Version,
		"result":         out,
	})
}

func (s *Server) handleDBInfo(c *gin.Context) {
	rel, ok := s.release(c)
	if !ok {
		return
	}

	out := make(map[string]query.Info, len(rel.Datasets))
	for id, ds := range rel.Datasets {
		info, err := ds.DBInfo()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out[id] = info
	}

	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGeneInfo(c *gin.Context) {
	rel, ok := s.release(c)
	if !ok {
		return
	}
	if rel.GeneIndex == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no gene dataset open for this release"})
		return
	}

	ids := splitCSV(c.Query("hgnc_id"))
	out := make(map[string]any, len(ids))
	for _, id := range ids {
		rec, ok := rel.GeneIndex.Lookup(id)
		if !ok {
			out[id] = nil
			continue
		}
		out[id] = rec
	}

	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGeneLookup(c *gin.Context) {
	rel, ok := s.release(c)
	if !ok {
		return
	}
	if rel.GeneIndex == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no gene dataset open for this release"})
		return
	}

	tokens := splitCSV(c.Query("q"))
	out := make(map[string]any, len(tokens))
	for _, token := range tokens {
		rec, ok := rel.GeneIndex.Lookup(token)
		if !ok {
			out[token] = nil
			continue
		}
		out[token] = rec
	}

	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGeneSearch(c *gin.Context) {
	rel, ok := s.release(c)
	if !ok {
		return
	}
	if rel.GeneIndex == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no gene dataset open for this release"})
		return
	}

	q := c.Query("q")
	fields := splitCSV(c.Query("fields"))

	c.JSON(http.StatusOK, gin.H{"results": rel.GeneIndex.Search(q, fields)})
}

func (s *Server) handleSVQuery(c *gin.Context) {
	rel, ok := s.release(c)
	if !ok {
		return
	}
	if rel.SVOverlay == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no clinvar-sv dataset open for this release"})
		return
	}

	chrom := c.Query("chromosome")
	start, err1 := strconv.ParseInt(c.Query("start"), 10, 64)
	stop, err2 := strconv.ParseInt(c.Query("stop"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start/stop must be integers"})
		return
	}

	minOverlap := 0.0
	if v := c.Query("min_overlap"); v != "" {
		var err error
		minOverlap, err = strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_overlap must be a float"})
			return
		}
	}

	pageNo, _ := strconv.Atoi(c.Query("page_no"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))

	var variationTypes []string
	if v := c.Query("variation_types"); v != "" {
		variationTypes = splitCSV(v)
	}

	page, err := rel.SVOverlay.Query(chrom, start, stop, variationTypes, minOverlap, pageNo, pageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, page)
}

func (s *Server) handleVersions(c *gin.Context) {
	rel, ok := s.release(c)
	if !ok {
		return
	}

	type versionEntry struct {
		query.Info
		XCreatedFrom string `json:"x_created_from,omitempty"`
	}

	out := make(map[string]versionEntry, len(rel.Datasets))
	for id, ds := range rel.Datasets {
		info, err := ds.DBInfo()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out[id] = versionEntry{Info: info, XCreatedFrom: rel.SourceInfo[id]}
	}

	c.JSON(http.StatusOK, out)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
