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

package api

import (
	"net/http"
	"strconv"

	pesquera "github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/api/middleware"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/config"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/metrics"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Api struct {
	pesquera *pesquera.Pesquera
	router   *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/processes", a.CreateProcess)
	router.GET("/processes", a.GetAllProcesses)
	router.GET("/processes/:id", a.GetProcess)

	router.POST("/lots", a.OpenLot)
	router.GET("/lots", a.GetAllLots)
	router.GET("/lots/:id", a.GetLot)
	router.POST("/lots/:id/open", a.ReopenLot)
	router.POST("/lots/:id/close", a.CloseLot)
	router.GET("/lots/:id/steps", a.GetLotSteps)
	router.GET("/lots/:id/tree", a.BuildLotForest)
	router.GET("/lots/:id/totals", a.GlobalTotals)
	router.GET("/lots/:id/reconciliation", a.Reconcile)

	router.POST("/steps", a.CreateStep)
	router.GET("/steps/:id", a.GetStep)
	router.POST("/steps/:id/finish", a.FinishStep)
	router.PUT("/steps/:id/parent", a.ReparentStep)
	router.GET("/steps/:id/tree", a.BuildProcessTree)

	router.POST("/steps/:id/inputs", a.BindInput)
	router.POST("/steps/:id/inputs/bulk", a.BindInputsBulk)
	router.GET("/steps/:id/inputs", a.GetStepInputs)
	router.DELETE("/inputs/:id", a.UnbindInput)

	router.POST("/steps/:id/outputs", a.RecordOutput)
	router.GET("/steps/:id/outputs", a.GetStepOutputs)
	router.GET("/outputs/:id", a.GetOutput)
	router.PUT("/outputs/:id", a.UpdateOutput)
	router.DELETE("/outputs/:id", a.DeleteOutput)

	router.POST("/consumptions", a.RecordConsumption)
	router.GET("/consumptions/:id", a.GetConsumption)
	router.PUT("/consumptions/:id", a.UpdateConsumption)
	router.DELETE("/consumptions/:id", a.DeleteConsumption)
	router.POST("/steps/:id/consumptions/bulk", a.RecordConsumptionsBulk)
	router.GET("/steps/:id/consumptions", a.GetStepConsumptions)
	router.GET("/steps/:id/available-outputs", a.ListAvailableOutputs)

	return a.router
}

func NewAPI(p *pesquera.Pesquera) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	service := conf.Telemetry.ServiceName
	if service == "" {
		service = "pesquera"
	}

	r := gin.Default()
	r.Use(otelgin.Middleware(service))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware(conf))
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return &Api{pesquera: p, router: r}
}

// respondError writes err with the status its code maps to. Errors that are
// not APIErrors are hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	if apiErr, ok := apierror.As(err); ok {
		c.JSON(status, apiErr)
		return
	}
	c.JSON(status, apierror.NewAPIError(apierror.ErrInternalServer, "Internal server error", err))
}

func badRequest(c *gin.Context, message string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "errors": err.Error()})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return value
}
