package database

import (
	"context"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"
)

func (d Datasource) CreateProcess(ctx context.Context, process model.Process) (model.Process, error) {
	ctx, span := tracer.Start(ctx, "CreateProcess")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO pesquera.processes (process_id, name, type, created_at)
		VALUES ($1, $2, $3, $4)
	`, process.ProcessID, process.Name, string(process.Type), process.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return model.Process{}, mapError(err, "Process", "Failed to create process")
	}
	return process, nil
}

func (d Datasource) GetProcessByID(ctx context.Context, id string) (*model.Process, error) {
	ctx, span := tracer.Start(ctx, "GetProcessByID")
	defer span.End()

	process := model.Process{}
	var processType string
	err := d.Conn.QueryRowContext(ctx, `
		SELECT process_id, name, type, created_at FROM pesquera.processes WHERE process_id = $1
	`, id).Scan(&process.ProcessID, &process.Name, &processType, &process.CreatedAt)
	if err != nil {
		return nil, mapError(err, "Process", "Failed to retrieve process")
	}
	process.Type = model.ProcessType(processType)
	return &process, nil
}

func (d Datasource) GetAllProcesses(ctx context.Context) ([]model.Process, error) {
	ctx, span := tracer.Start(ctx, "GetAllProcesses")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT process_id, name, type, created_at FROM pesquera.processes ORDER BY name
	`)
	if err != nil {
		return nil, mapError(err, "Process", "Failed to retrieve processes")
	}
	defer rows.Close()

	processes := []model.Process{}
	for rows.Next() {
		process := model.Process{}
		var processType string
		if err := rows.Scan(&process.ProcessID, &process.Name, &processType, &process.CreatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan process data", err)
		}
		process.Type = model.ProcessType(processType)
		processes = append(processes, process)
	}
	return processes, rows.Err()
}
