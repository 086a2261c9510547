package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"
)

const lotColumns = `lot_id, lot_code, species_id, capture_zone_id, notes, opened_at, closed_at, meta_data, created_at`

func (d Datasource) CreateLot(ctx context.Context, lot model.Lot) (model.Lot, error) {
	ctx, span := tracer.Start(ctx, "CreateLot")
	defer span.End()

	metaDataJSON, err := json.Marshal(lot.MetaData)
	if err != nil {
		return model.Lot{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO pesquera.lots (lot_id, lot_code, species_id, capture_zone_id, notes, opened_at, closed_at, meta_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, lot.LotID, nullString(lot.LotCode), nullString(lot.SpeciesID), nullString(lot.CaptureZoneID), nullString(lot.Notes),
		lot.OpenedAt, lot.ClosedAt, metaDataJSON, lot.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return model.Lot{}, mapError(err, "Lot", "Failed to create lot")
	}

	return lot, nil
}

func scanLot(row interface{ Scan(...interface{}) error }) (model.Lot, error) {
	var (
		lot                                      model.Lot
		lotCode, speciesID, captureZoneID, notes sql.NullString
		metaDataJSON                             []byte
	)
	err := row.Scan(&lot.LotID, &lotCode, &speciesID, &captureZoneID, &notes,
		&lot.OpenedAt, &lot.ClosedAt, &metaDataJSON, &lot.CreatedAt)
	if err != nil {
		return model.Lot{}, err
	}
	lot.LotCode = lotCode.String
	lot.SpeciesID = speciesID.String
	lot.CaptureZoneID = captureZoneID.String
	lot.Notes = notes.String
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &lot.MetaData); err != nil {
			return model.Lot{}, err
		}
	}
	return lot, nil
}

func (d Datasource) GetLotByID(ctx context.Context, id string) (*model.Lot, error) {
	ctx, span := tracer.Start(ctx, "GetLotByID")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `SELECT `+lotColumns+` FROM pesquera.lots WHERE lot_id = $1`, id)
	lot, err := scanLot(row)
	if err != nil {
		span.RecordError(err)
		return nil, mapError(err, "Lot", "Failed to retrieve lot")
	}
	return &lot, nil
}

func (d Datasource) GetAllLots(ctx context.Context, limit, offset int) ([]model.Lot, error) {
	ctx, span := tracer.Start(ctx, "GetAllLots")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+lotColumns+`
		FROM pesquera.lots
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, mapError(err, "Lot", "Failed to retrieve lots")
	}
	defer rows.Close()

	lots := []model.Lot{}
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan lot data", err)
		}
		lots = append(lots, lot)
	}
	if err = rows.Err(); err != nil {
		return nil, mapError(err, "Lot", "Error occurred while iterating over lots")
	}
	return lots, nil
}

// UpdateLotState writes both lifecycle timestamps at once.
func (d Datasource) UpdateLotState(ctx context.Context, lotID string, openedAt, closedAt *time.Time) error {
	ctx, span := tracer.Start(ctx, "UpdateLotState")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE pesquera.lots SET opened_at = $2, closed_at = $3 WHERE lot_id = $1
	`, lotID, openedAt, closedAt)
	if err != nil {
		span.RecordError(err)
		return mapError(err, "Lot", "Failed to update lot state")
	}
	return expectAffected(result, "Lot")
}

func expectAffected(result sql.Result, entity string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrPersistence, "Failed to read affected rows", err)
	}
	if n == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, entity+" not found", nil)
	}
	return nil
}
