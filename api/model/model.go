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

package model

import (
	"errors"
	"time"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/model"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

func nonNegativeDecimal(value interface{}) error {
	switch v := value.(type) {
	case decimal.Decimal:
		if v.IsNegative() {
			return errors.New("must not be negative")
		}
	case *decimal.Decimal:
		if v != nil && v.IsNegative() {
			return errors.New("must not be negative")
		}
	}
	return nil
}

func validateDateFormat(value interface{}) error {
	dateStr, ok := value.(string)
	if !ok {
		return errors.New("invalid type for date")
	}
	if _, err := time.Parse(time.RFC3339, dateStr); err != nil {
		return errors.New("please format the date as 'YYYY-MM-DDTHH:MM:SS+00:00' (e.g., 2024-04-22T15:28:03+00:00)")
	}
	return nil
}

// weightOrBoxes rejects a quantity with neither weight nor boxes.
func weightOrBoxes(weight decimal.Decimal, boxes int64) validation.RuleFunc {
	return func(value interface{}) error {
		if weight.IsZero() && boxes == 0 {
			return errors.New("either weight or boxes must be greater than zero")
		}
		return nil
	}
}

func (l *OpenLot) ValidateOpenLot() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.LotCode, validation.Length(1, 64)),
		validation.Field(&l.SpeciesID, validation.Required),
		validation.Field(&l.CaptureZoneID, validation.Required),
	)
}

func (p *CreateProcess) ValidateCreateProcess() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Type, validation.Required, validation.In(
			string(model.ProcessStarting), string(model.ProcessStep), string(model.ProcessFinal))),
	)
}

func (s *CreateStep) ValidateCreateStep() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.LotID, validation.Required),
		validation.Field(&s.ProcessID, validation.Required),
		validation.Field(&s.StartedAt, validation.When(s.StartedAt != "", validation.By(validateDateFormat))),
	)
}

func (b *BindInput) ValidateBindInput() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.BoxID, validation.Required),
	)
}

func (b *BindInputs) ValidateBindInputs() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.BoxIDs, validation.Required, validation.Each(validation.Required)),
	)
}

func (o *RecordOutput) ValidateRecordOutput() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.ProductID, validation.Required),
		validation.Field(&o.Boxes, validation.Min(int64(0))),
		validation.Field(&o.Weight, validation.By(nonNegativeDecimal), validation.By(weightOrBoxes(o.Weight, o.Boxes))),
	)
}

func (o *UpdateOutput) ValidateUpdateOutput() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.ProductID, validation.NilOrNotEmpty),
		validation.Field(&o.Boxes, validation.Min(int64(0))),
		validation.Field(&o.Weight, validation.By(nonNegativeDecimal)),
	)
}

func (r *RecordConsumption) ValidateRecordConsumption() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.StepID, validation.Required),
		validation.Field(&r.OutputID, validation.Required),
		validation.Field(&r.Boxes, validation.Min(int64(0))),
		validation.Field(&r.Weight, validation.By(nonNegativeDecimal), validation.By(weightOrBoxes(r.Weight, r.Boxes))),
	)
}

func (u *UpdateConsumption) ValidateUpdateConsumption() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.Weight, validation.By(nonNegativeDecimal), validation.When(u.Boxes == nil, validation.Required.Error("weight or boxes is required"))),
		validation.Field(&u.Boxes, validation.Min(int64(0))),
	)
}

func (l ConsumptionLine) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.OutputID, validation.Required),
		validation.Field(&l.Boxes, validation.Min(int64(0))),
		validation.Field(&l.Weight, validation.By(nonNegativeDecimal), validation.By(weightOrBoxes(l.Weight, l.Boxes))),
	)
}

func (b *BulkConsumptions) ValidateBulkConsumptions() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.Lines, validation.Required),
	)
}
