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

	model2 "github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/api/model"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/gin-gonic/gin"
)

func (a Api) CreateProcess(c *gin.Context) {
	var newProcess model2.CreateProcess
	if err := c.ShouldBindJSON(&newProcess); err != nil {
		badRequest(c, "invalid process data", err)
		return
	}
	if err := newProcess.ValidateCreateProcess(); err != nil {
		badRequest(c, "invalid process data", err)
		return
	}

	resp, err := a.pesquera.CreateProcess(c.Request.Context(), newProcess.ToProcess())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetProcess(c *gin.Context) {
	resp, err := a.pesquera.GetProcess(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetAllProcesses(c *gin.Context) {
	resp, err := a.pesquera.GetAllProcesses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) OpenLot(c *gin.Context) {
	var newLot model2.OpenLot
	if err := c.ShouldBindJSON(&newLot); err != nil {
		badRequest(c, "invalid lot data", err)
		return
	}
	if err := newLot.ValidateOpenLot(); err != nil {
		badRequest(c, "invalid lot data", err)
		return
	}

	resp, err := a.pesquera.OpenLot(c.Request.Context(), newLot.ToLot())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) ReopenLot(c *gin.Context) {
	resp, err := a.pesquera.OpenLot(c.Request.Context(), model.Lot{LotID: c.Param("id")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) CloseLot(c *gin.Context) {
	resp, err := a.pesquera.CloseLot(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetLot(c *gin.Context) {
	resp, err := a.pesquera.GetLot(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetAllLots(c *gin.Context) {
	resp, err := a.pesquera.GetAllLots(c.Request.Context(), queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetLotSteps(c *gin.Context) {
	resp, err := a.pesquera.GetLotSteps(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) CreateStep(c *gin.Context) {
	var newStep model2.CreateStep
	if err := c.ShouldBindJSON(&newStep); err != nil {
		badRequest(c, "invalid step data", err)
		return
	}
	if err := newStep.ValidateCreateStep(); err != nil {
		badRequest(c, "invalid step data", err)
		return
	}

	resp, err := a.pesquera.CreateStep(c.Request.Context(), newStep.ToStep())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetStep(c *gin.Context) {
	resp, err := a.pesquera.GetStep(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) FinishStep(c *gin.Context) {
	resp, err := a.pesquera.FinishStep(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) ReparentStep(c *gin.Context) {
	var req model2.ReparentStep
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid parent data", err)
		return
	}

	resp, err := a.pesquera.ReparentStep(c.Request.Context(), c.Param("id"), req.ParentStepID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
