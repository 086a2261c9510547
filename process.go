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

package pesquera

import (
	"context"
	"strings"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"
)

func (p *Pesquera) CreateProcess(ctx context.Context, process model.Process) (model.Process, error) {
	ctx, span := tracer.Start(ctx, "CreateProcess")
	defer span.End()

	process.Name = strings.TrimSpace(process.Name)
	if process.Name == "" {
		return model.Process{}, validationError("Process name is required", nil)
	}
	if !process.Type.Valid() {
		return model.Process{}, validationError("Process type must be starting, process or final", map[string]string{"type": string(process.Type)})
	}

	process.ProcessID = model.GenerateUUIDWithSuffix("prc")
	process.CreatedAt = p.timestamp()
	return p.datasource.CreateProcess(ctx, process)
}

func (p *Pesquera) GetProcess(ctx context.Context, id string) (*model.Process, error) {
	return p.datasource.GetProcessByID(ctx, id)
}

func (p *Pesquera) GetAllProcesses(ctx context.Context) ([]model.Process, error) {
	return p.datasource.GetAllProcesses(ctx)
}
