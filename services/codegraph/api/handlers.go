// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/codegraph/services/codegraph/document"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleScopes(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.project.Document.ScopeKeys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	c.JSON(http.StatusOK, gin.H{"root_path": s.project.RootPath, "scopes": out})
}

func (s *Server) handleScope(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope, ok := s.scope(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newScopeView(scope))
}

func (s *Server) handleResolve(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kind, err := document.ParseKind(c.Query("kind"))
	if err != nil || !kind.IsSymbol() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be FUNCTION, METHOD or CLASS"})
		return
	}
	symbol := strings.TrimSuffix(strings.TrimSpace(c.Query("symbol")), "()")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	key := scopeKey(c.Query("scope"))

	dir := s.resolver.SearchPath(key, kind)
	matches := s.resolver.Resolve(c.Request.Context(), symbol, dir, kind)
	c.JSON(http.StatusOK, newResolveView(symbol, kind, matches))
}

func (s *Server) handleDoc(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope, ok := s.scope(c)
	if !ok {
		return
	}
	b, found := scope.Block(c.Query("block"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found"})
		return
	}
	doc, has := s.docs.ResolveDocumentation(c.Request.Context(), b)
	c.JSON(http.StatusOK, gin.H{"block": b.ID, "found": has, "documentation": doc})
}

type validateRequest struct {
	Scope string `json:"scope"`
}

func (s *Server) handleValidate(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var req validateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}
	key := scopeKey(req.Scope)
	scope, found := s.project.Document.Scope(key)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "scope not found", "scope": string(key)})
		return
	}
	report := s.resolver.ValidateAll(c.Request.Context(), key, scope.Blocks())
	c.JSON(http.StatusOK, newReportView(report))
}

// scope looks up the ?key= scope, writing a 404 when it is missing.
func (s *Server) scope(c *gin.Context) (*document.Scope, bool) {
	key := scopeKey(c.Query("key"))
	if c.Query("scope") != "" {
		key = scopeKey(c.Query("scope"))
	}
	scope, found := s.project.Document.Scope(key)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "scope not found", "scope": string(key)})
		return nil, false
	}
	return scope, true
}

func scopeKey(raw string) document.ScopeKey {
	raw = strings.Trim(strings.TrimSpace(raw), "/")
	if raw == "" {
		return document.RootScope
	}
	return document.ScopeKey(raw)
}
