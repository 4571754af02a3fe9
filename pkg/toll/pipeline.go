package toll

import (
	"errors"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tollgate/pkg/anpr"
)

// Status is the terminal state of one capture event.
type Status string

const (
	StatusBilled            Status = "billed"
	StatusPlateNotFound     Status = "plate_not_found"
	StatusVehicleUnknown    Status = "vehicle_unknown"
	StatusInsufficientFunds Status = "insufficient_funds"
	StatusInvalidImage      Status = "invalid_image"
)

// Outcome is the structured result of one crossing. It is the only thing
// that survives a capture event; the event's intermediate state is
// discarded when Process returns.
type Outcome struct {
	EventID      string    `json:"event_id"`
	Status       Status    `json:"status"`
	Plate        string    `json:"plate,omitempty"`
	PlateValid   bool      `json:"plate_valid,omitempty"`
	VehicleKey   string    `json:"vehicle_key,omitempty"`
	AmountCents  int64     `json:"amount_cents,omitempty"`
	BalanceCents int64     `json:"balance_cents,omitempty"`
	FramePath    string    `json:"frame_path,omitempty"`
	PlatePath    string    `json:"plate_path,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Archiver mirrors billed transactions into durable storage. Optional; the
// CSV transaction log remains the system of record.
type Archiver interface {
	ArchiveTransaction(rec TransactionRecord, eventID string) error
}

// Pipeline sequences one capture event: preprocess, localize, persist
// artifacts, recognize, resolve, bill. Every terminal state produces
// exactly one sink entry: the transaction log for billed events, the error
// log for everything else.
type Pipeline struct {
	localizer  *anpr.Localizer
	recognizer anpr.Recognizer
	registry   *Registry
	billing    *BillingEngine
	files      *FileManager
	txlog      *TransactionLog
	errlog     *ErrorLog
	archiver   Archiver
	log        zerolog.Logger
}

// PipelineParams collects the pipeline's collaborators. Archiver may be
// nil.
type PipelineParams struct {
	Localizer  *anpr.Localizer
	Recognizer anpr.Recognizer
	Registry   *Registry
	Billing    *BillingEngine
	Files      *FileManager
	TxLog      *TransactionLog
	ErrLog     *ErrorLog
	Archiver   Archiver
	Log        zerolog.Logger
}

// NewPipeline wires the orchestrator.
func NewPipeline(p PipelineParams) *Pipeline {
	return &Pipeline{
		localizer:  p.Localizer,
		recognizer: p.Recognizer,
		registry:   p.Registry,
		billing:    p.Billing,
		files:      p.Files,
		txlog:      p.TxLog,
		errlog:     p.ErrLog,
		archiver:   p.Archiver,
		log:        p.Log,
	}
}

// ProcessFile decodes an image file and processes it as one capture event.
// An undecodable file is an invalid input, not a pipeline error.
func (p *Pipeline) ProcessFile(path string) Outcome {
	img, err := imaging.Open(path)
	if err != nil {
		return p.rejectInvalid(uuid.NewString(), err.Error())
	}
	return p.Process(img)
}

// Process runs one capture event to a terminal outcome. Per-frame failures
// never propagate as errors past this boundary.
func (p *Pipeline) Process(frame image.Image) Outcome {
	ts := time.Now()
	eventID := uuid.NewString()
	out := Outcome{EventID: eventID, Timestamp: ts}

	if frame == nil || frame.Bounds().Dx() == 0 || frame.Bounds().Dy() == 0 {
		return p.rejectInvalid(eventID, "empty or zero-dimension frame")
	}

	// raw frame is retained for every accepted capture, whatever the
	// outcome, to support manual reconciliation
	framePath, err := p.files.SaveFrame(frame, ts, eventID)
	if err != nil {
		p.log.Error().Err(err).Str("event_id", eventID).Msg("frame artifact write failed")
	}
	out.FramePath = framePath

	norm, err := anpr.Preprocess(frame)
	if err != nil {
		return p.rejectInvalid(eventID, err.Error())
	}

	region, ok := p.localizer.Locate(norm)
	if !ok {
		out.Status = StatusPlateNotFound
		_ = p.errlog.Appendf("no license plate detected in event %s", eventID)
		p.log.Info().Str("event_id", eventID).Msg("plate not found")
		return out
	}

	// crop from the original frame; preprocessing preserves dimensions so
	// the region maps back directly. Persist before OCR so a mis-read can
	// still be reviewed later.
	crop := imaging.Crop(frame, region)
	platePath, err := p.files.SavePlate(crop, ts, eventID)
	if err != nil {
		p.log.Error().Err(err).Str("event_id", eventID).Msg("plate artifact write failed")
	}
	out.PlatePath = platePath

	text, err := p.recognizer.Text(crop)
	if err != nil {
		out.Status = StatusPlateNotFound
		_ = p.errlog.Appendf("plate ocr failed in event %s: %v", eventID, err)
		p.log.Warn().Err(err).Str("event_id", eventID).Msg("plate ocr failed")
		return out
	}
	plate := anpr.CleanPlate(text)
	out.Plate = plate
	out.PlateValid = anpr.ValidPlate(plate)

	vehicle, found := p.registry.Lookup(plate)
	if !found {
		if repaired, ok := anpr.RepairPlate(plate); ok {
			if v2, ok2 := p.registry.Lookup(repaired); ok2 {
				vehicle, found = v2, true
				out.Plate = repaired
				out.PlateValid = true
			}
		}
	}
	if !found {
		out.Status = StatusVehicleUnknown
		_ = p.errlog.Appendf("unrecognized vehicle %q in event %s", plate, eventID)
		p.log.Info().Str("event_id", eventID).Str("plate", plate).Msg("vehicle unknown")
		return out
	}
	out.VehicleKey = vehicle.Plate

	rec, err := p.billing.Charge(vehicle)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			out.Status = StatusInsufficientFunds
			out.AmountCents = p.billing.Rate(vehicle.Class)
			out.BalanceCents = vehicle.Balance()
			_ = p.errlog.Appendf("insufficient balance for %s in event %s", vehicle.Plate, eventID)
			p.log.Info().Str("event_id", eventID).Str("plate", vehicle.Plate).Msg("insufficient funds")
			return out
		}
		// registry and pipeline share the vehicle set, so this is
		// unreachable unless collaborators are miswired
		out.Status = StatusVehicleUnknown
		_ = p.errlog.Appendf("charge failed for %s in event %s: %v", vehicle.Plate, eventID, err)
		p.log.Error().Err(err).Str("event_id", eventID).Msg("charge failed")
		return out
	}

	if err := p.txlog.Append(rec); err != nil {
		p.log.Error().Err(err).Str("event_id", eventID).Msg("transaction log append failed")
	}
	if p.archiver != nil {
		if err := p.archiver.ArchiveTransaction(rec, eventID); err != nil {
			p.log.Error().Err(err).Str("event_id", eventID).Msg("transaction archive failed")
		}
	}

	out.Status = StatusBilled
	out.AmountCents = rec.AmountCents
	out.BalanceCents = rec.BalanceCents
	p.log.Info().
		Str("event_id", eventID).
		Str("plate", vehicle.Plate).
		Str("class", string(vehicle.Class)).
		Str("amount", FormatAmount(rec.AmountCents)).
		Str("balance", FormatAmount(rec.BalanceCents)).
		Msg("vehicle billed")
	return out
}

// rejectInvalid handles input errors: logged once, no artifacts written.
func (p *Pipeline) rejectInvalid(eventID, reason string) Outcome {
	_ = p.errlog.Appendf("invalid capture image: %s", reason)
	p.log.Warn().Str("event_id", eventID).Str("reason", reason).Msg("invalid image rejected")
	return Outcome{EventID: eventID, Status: StatusInvalidImage, Timestamp: time.Now()}
}
