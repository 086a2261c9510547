package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/cache"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const defaultProductTTL = 5 * time.Minute

func scanBox(row interface{ Scan(...interface{}) error }) (model.Box, error) {
	var (
		box     model.Box
		lotCode sql.NullString
	)
	if err := row.Scan(&box.BoxID, &box.ProductID, &lotCode, &box.NetWeight, &box.Available); err != nil {
		return model.Box{}, err
	}
	box.LotCode = lotCode.String
	return box, nil
}

func (d Datasource) GetBoxByID(ctx context.Context, boxID string) (*model.Box, error) {
	ctx, span := tracer.Start(ctx, "GetBoxByID")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT box_id, product_id, lot_code, net_weight, available FROM pesquera.boxes WHERE box_id = $1
	`, boxID)
	box, err := scanBox(row)
	if err != nil {
		return nil, mapError(err, "Box", "Failed to retrieve box")
	}
	return &box, nil
}

func (d Datasource) GetBoxes(ctx context.Context, boxIDs []string) (map[string]model.Box, error) {
	ctx, span := tracer.Start(ctx, "GetBoxes")
	defer span.End()

	boxes := make(map[string]model.Box, len(boxIDs))
	if len(boxIDs) == 0 {
		return boxes, nil
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT box_id, product_id, lot_code, net_weight, available FROM pesquera.boxes WHERE box_id = ANY($1)
	`, pq.Array(boxIDs))
	if err != nil {
		return nil, mapError(err, "Box", "Failed to retrieve boxes")
	}
	defer rows.Close()

	for rows.Next() {
		box, err := scanBox(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan box data", err)
		}
		boxes[box.BoxID] = box
	}
	return boxes, rows.Err()
}

// GetProducts resolves product ids, serving what it can from the cache and
// filling it with whatever had to be read from the database.
func (d Datasource) GetProducts(ctx context.Context, productIDs []string) (map[string]model.Product, error) {
	ctx, span := tracer.Start(ctx, "GetProducts")
	defer span.End()

	products := make(map[string]model.Product, len(productIDs))
	missing := make([]string, 0, len(productIDs))
	for _, id := range uniqueSorted(productIDs) {
		if d.Cache != nil {
			var p model.Product
			found, err := d.Cache.Get(ctx, cache.ProductKey(id), &p)
			if err != nil {
				logrus.Warnf("product cache read failed for %s: %v", id, err)
			}
			if found {
				products[id] = p
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return products, nil
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT product_id, name, species_id FROM pesquera.products WHERE product_id = ANY($1)
	`, pq.Array(missing))
	if err != nil {
		return nil, mapError(err, "Product", "Failed to retrieve products")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p       model.Product
			species sql.NullString
		)
		if err := rows.Scan(&p.ProductID, &p.Name, &species); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan product data", err)
		}
		p.SpeciesID = species.String
		products[p.ProductID] = p
		if d.Cache != nil {
			if err := d.Cache.Set(ctx, cache.ProductKey(p.ProductID), p, d.productTTL()); err != nil {
				logrus.Warnf("product cache write failed for %s: %v", p.ProductID, err)
			}
		}
	}
	return products, rows.Err()
}

func (d Datasource) productTTL() time.Duration {
	if d.ProductTTL <= 0 {
		return defaultProductTTL
	}
	return d.ProductTTL
}
