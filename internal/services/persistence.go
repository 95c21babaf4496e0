// internal/services/persistence.go
package services

import (
	"context"
	"encoding/json"
	"strings"

	apperrors "github.com/Corphon/EbookGen/internal/errors"
	"github.com/Corphon/EbookGen/internal/models"
	"github.com/Corphon/EbookGen/internal/storage"
	"github.com/Corphon/EbookGen/internal/utils"
)

// StateSink receives every durable state change. Implementations must not
// block on I/O and must not fail.
type StateSink interface {
	SaveProject(p models.Project)
	RemoveProject()
	SaveView(v models.ViewState)
	SaveCredential(value string)
	RemoveCredential()
}

// SlotWriter is the write side of a write-behind queue
type SlotWriter interface {
	Save(slot storage.Slot, value []byte)
	Remove(slot storage.Slot)
}

// SlotLoader is the read side used once at startup
type SlotLoader interface {
	Load(ctx context.Context, slot storage.Slot) ([]byte, bool, error)
}

// DurableSync serializes state changes into the three slots
type DurableSync struct {
	writer  SlotWriter
	sealer  *utils.Sealer
	metrics *utils.AppMetrics
	logger  *utils.Logger
}

var _ StateSink = (*DurableSync)(nil)

func NewDurableSync(writer SlotWriter, sealer *utils.Sealer, metrics *utils.AppMetrics) *DurableSync {
	if metrics == nil {
		metrics = utils.NewAppMetrics(nil)
	}
	return &DurableSync{
		writer:  writer,
		sealer:  sealer,
		metrics: metrics,
		logger:  utils.GetLogger(),
	}
}

func (d *DurableSync) SaveProject(p models.Project) {
	data, err := json.Marshal(p)
	if err != nil {
		d.fail(storage.SlotProject, err)
		return
	}
	d.writer.Save(storage.SlotProject, data)
}

func (d *DurableSync) RemoveProject() {
	d.writer.Remove(storage.SlotProject)
}

func (d *DurableSync) SaveView(v models.ViewState) {
	d.writer.Save(storage.SlotView, []byte(v))
}

// SaveCredential seals value when a secret is configured
func (d *DurableSync) SaveCredential(value string) {
	sealed, err := d.sealer.Seal(value)
	if err != nil {
		d.fail(storage.SlotCredential, err)
		return
	}
	d.writer.Save(storage.SlotCredential, []byte(sealed))
}

func (d *DurableSync) RemoveCredential() {
	d.writer.Remove(storage.SlotCredential)
}

func (d *DurableSync) fail(slot storage.Slot, err error) {
	failure := apperrors.NewPersistenceError("encode "+string(slot)+" failed", err)
	d.metrics.RecordPersistenceFailure(string(slot))
	d.logger.Error("failed to encode state for persistence", map[string]interface{}{
		"slot":  string(slot),
		"code":  failure.Code,
		"error": failure,
	})
}

// RestoredState is what the durable store held at startup
type RestoredState struct {
	Project    models.Project
	View       models.ViewState
	Credential string
}

// Restore reads all three slots once. Unreadable or undecodable content is
// treated as absent. An empty project forces Onboarding whatever view was saved.
func Restore(ctx context.Context, loader SlotLoader, sealer *utils.Sealer) RestoredState {
	logger := utils.GetLogger()
	state := RestoredState{
		Project: models.NewProject(),
		View:    models.ViewOnboarding,
	}

	load := func(slot storage.Slot) ([]byte, bool) {
		data, ok, err := loader.Load(ctx, slot)
		if err != nil {
			logger.Warn("failed to read slot, using defaults", map[string]interface{}{
				"slot":  string(slot),
				"error": err,
			})
			return nil, false
		}
		return data, ok
	}

	if data, ok := load(storage.SlotProject); ok {
		var p models.Project
		if err := json.Unmarshal(data, &p); err != nil {
			logger.Warn("saved project is not valid, starting empty", map[string]interface{}{"error": err})
		} else {
			p.Normalize()
			state.Project = p
		}
	}

	if data, ok := load(storage.SlotView); ok {
		if v, err := models.ParseViewState(strings.TrimSpace(string(data))); err == nil {
			state.View = v
		}
	}
	if state.Project.IsEmpty() {
		state.View = models.ViewOnboarding
	}

	if data, ok := load(storage.SlotCredential); ok {
		value, err := sealer.Open(string(data))
		if err != nil {
			logger.Warn("stored credential could not be opened, ignoring it", map[string]interface{}{"error": err})
		} else {
			state.Credential = strings.TrimSpace(value)
		}
	}
	return state
}
