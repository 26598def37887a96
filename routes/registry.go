package routes

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/config"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/registry"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/search"
	"github.com/runwhen-contrib/codecollection-registry-sub002/utils"
)

// catalogMatch is one keyword-search result in the browse API. Unlike the
// assistant pipeline it exposes which fields matched, which the catalog UI
// uses for highlighting.
type catalogMatch struct {
	Slug          string   `json:"slug"`
	Collection    string   `json:"collection"`
	Score         float64  `json:"score"`
	MatchedFields []string `json:"matched_fields,omitempty"`
}

// SetupRegistryRoutes exposes the read-only registry catalog.
func SetupRegistryRoutes(router *gin.Engine, repo *registry.Repository, source *registry.Source, retrieval config.Retrieval) {
	router.GET("/codecollections", func(c *gin.Context) {
		collections, err := repo.ListCodeCollections(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list codecollections", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"codecollections": collections, "count": len(collections)})
	})

	router.GET("/codecollections/:slug", func(c *gin.Context) {
		collection, err := repo.GetCodeCollection(c.Request.Context(), c.Param("slug"))
		if errors.Is(err, registry.ErrNotFound) {
			utils.RespondWithNotFound(c, "Codecollection not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load codecollection", nil)
			return
		}
		c.JSON(http.StatusOK, collection)
	})

	router.GET("/codecollections/:slug/codebundles", func(c *gin.Context) {
		bundles, err := repo.ListCodeBundles(c.Request.Context(), registry.BundleFilter{
			CodeCollectionSlug: c.Param("slug"),
			Platform:           c.Query("platform"),
			Type:               c.Query("type"),
			Limit:              parseLimit(c),
		})
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list codebundles", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"codebundles": bundles, "count": len(bundles)})
	})

	router.GET("/codebundles", func(c *gin.Context) {
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			searchCodeBundles(c, source, retrieval, q)
			return
		}
		bundles, err := repo.ListCodeBundles(c.Request.Context(), registry.BundleFilter{
			CodeCollectionSlug: c.Query("codecollection"),
			Platform:           c.Query("platform"),
			Type:               c.Query("type"),
			Limit:              parseLimit(c),
		})
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list codebundles", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"codebundles": bundles, "count": len(bundles)})
	})

	router.GET("/codebundles/:slug", func(c *gin.Context) {
		bundle, err := repo.GetCodeBundle(c.Request.Context(), c.Param("slug"))
		if errors.Is(err, registry.ErrNotFound) {
			utils.RespondWithNotFound(c, "Codebundle not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load codebundle", nil)
			return
		}
		c.JSON(http.StatusOK, bundle)
	})

	router.GET("/libraries", func(c *gin.Context) {
		libraries, err := repo.ListLibraries(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list libraries", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"libraries": libraries, "count": len(libraries)})
	})

	router.GET("/libraries/:slug", func(c *gin.Context) {
		library, err := repo.GetLibrary(c.Request.Context(), c.Param("slug"))
		if errors.Is(err, registry.ErrNotFound) {
			utils.RespondWithNotFound(c, "Library not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load library", nil)
			return
		}
		c.JSON(http.StatusOK, library)
	})

	router.GET("/docs", func(c *gin.Context) {
		pages, err := repo.ListDocPages(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documentation pages", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"pages": pages, "count": len(pages)})
	})

	router.GET("/stats", func(c *gin.Context) {
		counts, err := repo.Counts(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to count records", nil)
			return
		}
		c.JSON(http.StatusOK, counts)
	})
}

// searchCodeBundles handles `?q=` on the bundle listing. It is keyword-only,
// so the catalog stays searchable even when the vector snapshot is cold.
func searchCodeBundles(c *gin.Context, source *registry.Source, retrieval config.Retrieval, q string) {
	docs, err := source.Documents(c.Request.Context(), search.CollectionBundles)
	if err != nil {
		utils.RespondWithInternalError(c, "Failed to load codebundles", nil)
		return
	}

	hits := search.KeywordSearch(docs, q, retrieval)
	if limit := parseLimit(c); limit > 0 && int64(len(hits)) > limit {
		hits = hits[:limit]
	}

	matches := make([]catalogMatch, 0, len(hits))
	for _, hit := range hits {
		matches = append(matches, catalogMatch{
			Slug:          hit.ID,
			Collection:    hit.Collection,
			Score:         search.NormalizeKeywordScore(hit.Score, retrieval),
			MatchedFields: hit.MatchedFields,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": matches, "count": len(matches)})
}

func parseLimit(c *gin.Context) int64 {
	raw := c.Query("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
