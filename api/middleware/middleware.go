/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/config"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/gin-gonic/gin"
)

const (
	// KeyHeader carries the shared secret when the server runs in secure mode.
	// A bearer token in Authorization is accepted as well.
	KeyHeader = "X-Pesquera-Key"

	// StationHeader names the scanning terminal behind a request. Terminals
	// on one plant network share an address, so each gets its own bucket.
	StationHeader = "X-Pesquera-Station"

	defaultLimiterTTL = time.Hour
)

// openPaths skip authentication and rate limiting.
var openPaths = map[string]bool{"/": true}

func abort(c *gin.Context, status int, code apierror.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, apierror.APIError{Code: code, Message: message})
}

// RateLimitMiddleware limits requests per station, or per client address for
// requests that do not name a station. Without both rate and burst configured
// it lets everything through.
func RateLimitMiddleware(conf *config.Configuration) gin.HandlerFunc {
	if conf.RateLimit.RequestsPerSecond == nil || conf.RateLimit.Burst == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	ttl := defaultLimiterTTL
	if conf.RateLimit.CleanupIntervalSec != nil && *conf.RateLimit.CleanupIntervalSec > 0 {
		ttl = time.Duration(*conf.RateLimit.CleanupIntervalSec) * time.Second
	}
	lmt := tollbooth.NewLimiter(*conf.RateLimit.RequestsPerSecond, &limiter.ExpirableOptions{
		DefaultExpirationTTL: ttl,
	})
	lmt.SetBurst(*conf.RateLimit.Burst)

	return func(c *gin.Context) {
		if openPaths[c.Request.URL.Path] {
			c.Next()
			return
		}
		if httpError := tollbooth.LimitByKeys(lmt, []string{limitKey(c)}); httpError != nil {
			abort(c, httpError.StatusCode, apierror.ErrRateLimited, "Too many requests, slow down")
			return
		}
		c.Next()
	}
}

func limitKey(c *gin.Context) string {
	if station := strings.TrimSpace(c.GetHeader(StationHeader)); station != "" {
		return "station:" + station
	}
	return "ip:" + c.ClientIP()
}

// SecretKeyAuthMiddleware rejects requests that do not present the configured
// secret key. The key is read once, when the router is built.
func SecretKeyAuthMiddleware(conf *config.Configuration) gin.HandlerFunc {
	secretKey := conf.Server.SecretKey

	return func(c *gin.Context) {
		if openPaths[c.Request.URL.Path] {
			c.Next()
			return
		}
		if secretKey == "" {
			abort(c, http.StatusInternalServerError, apierror.ErrInternalServer, "Secret key is not configured")
			return
		}

		clientSecret := presentedKey(c)
		if clientSecret == "" {
			abort(c, http.StatusUnauthorized, apierror.ErrUnauthorized, "Missing secret key")
			return
		}
		if subtle.ConstantTimeCompare([]byte(secretKey), []byte(clientSecret)) != 1 {
			abort(c, http.StatusUnauthorized, apierror.ErrUnauthorized, "Invalid secret key")
			return
		}
		c.Next()
	}
}

func presentedKey(c *gin.Context) string {
	if key := c.GetHeader(KeyHeader); key != "" {
		return key
	}
	auth := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
