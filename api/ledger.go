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

	pesquera "github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000"
	model2 "github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/api/model"

	"github.com/gin-gonic/gin"
)

func (a Api) BindInput(c *gin.Context) {
	var req model2.BindInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid input data", err)
		return
	}
	if err := req.ValidateBindInput(); err != nil {
		badRequest(c, "invalid input data", err)
		return
	}

	resp, err := a.pesquera.BindInput(c.Request.Context(), c.Param("id"), req.BoxID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// BindInputsBulk answers 201 when every box was bound, 207 when only some
// were, and the mapped error status with the per-box report when none were.
func (a Api) BindInputsBulk(c *gin.Context) {
	var req model2.BindInputs
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid input data", err)
		return
	}
	if err := req.ValidateBindInputs(); err != nil {
		badRequest(c, "invalid input data", err)
		return
	}

	resp, err := a.pesquera.BindInputsBulk(c.Request.Context(), c.Param("id"), req.BoxIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if len(resp.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, resp)
}

func (a Api) GetStepInputs(c *gin.Context) {
	resp, err := a.pesquera.GetStepInputs(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) UnbindInput(c *gin.Context) {
	if err := a.pesquera.UnbindInput(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a Api) RecordOutput(c *gin.Context) {
	var req model2.RecordOutput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid output data", err)
		return
	}
	if err := req.ValidateRecordOutput(); err != nil {
		badRequest(c, "invalid output data", err)
		return
	}

	resp, err := a.pesquera.RecordOutput(c.Request.Context(), req.ToOutput(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetStepOutputs(c *gin.Context) {
	resp, err := a.pesquera.GetStepOutputs(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetOutput(c *gin.Context) {
	resp, err := a.pesquera.GetOutput(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) UpdateOutput(c *gin.Context) {
	var req model2.UpdateOutput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid output data", err)
		return
	}
	if err := req.ValidateUpdateOutput(); err != nil {
		badRequest(c, "invalid output data", err)
		return
	}

	resp, err := a.pesquera.UpdateOutput(c.Request.Context(), c.Param("id"), req.ToOutputUpdate())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) DeleteOutput(c *gin.Context) {
	if err := a.pesquera.DeleteOutput(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a Api) RecordConsumption(c *gin.Context) {
	var req model2.RecordConsumption
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid consumption data", err)
		return
	}
	if err := req.ValidateRecordConsumption(); err != nil {
		badRequest(c, "invalid consumption data", err)
		return
	}

	resp, err := a.pesquera.RecordConsumption(c.Request.Context(), pesquera.ConsumptionRequest{
		StepID:   req.StepID,
		OutputID: req.OutputID,
		Weight:   req.Weight,
		Boxes:    req.Boxes,
		Notes:    req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetConsumption(c *gin.Context) {
	resp, err := a.pesquera.GetConsumption(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) UpdateConsumption(c *gin.Context) {
	var req model2.UpdateConsumption
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid consumption data", err)
		return
	}
	if err := req.ValidateUpdateConsumption(); err != nil {
		badRequest(c, "invalid consumption data", err)
		return
	}

	resp, err := a.pesquera.UpdateConsumption(c.Request.Context(), c.Param("id"), req.Weight, req.Boxes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) DeleteConsumption(c *gin.Context) {
	if err := a.pesquera.DeleteConsumption(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a Api) RecordConsumptionsBulk(c *gin.Context) {
	var req model2.BulkConsumptions
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid consumption data", err)
		return
	}
	if err := req.ValidateBulkConsumptions(); err != nil {
		badRequest(c, "invalid consumption data", err)
		return
	}

	resp, err := a.pesquera.RecordConsumptionsBulk(c.Request.Context(), c.Param("id"), req.ToLines())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetStepConsumptions(c *gin.Context) {
	resp, err := a.pesquera.GetStepConsumptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) ListAvailableOutputs(c *gin.Context) {
	resp, err := a.pesquera.ListAvailableOutputs(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
