package engine

import (
	"time"

	"github.com/talgya/agri-commons/internal/accounting"
	"github.com/talgya/agri-commons/internal/crops"
	"github.com/talgya/agri-commons/internal/energy"
	"github.com/talgya/agri-commons/internal/storage"
	"github.com/talgya/agri-commons/internal/water"
)

// Farm is a member farm's mutable state.
type Farm struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	AreaHa  float64       `json:"area_ha"`
	Cash    float64       `json:"cash"`
	UsageM3 float64       `json:"usage_m3"` // Cumulative irrigation delivered
	Crops   []*crops.Crop `json:"crops"`

	DemandPolicy crops.DemandPolicy `json:"-"`
}

func (f *Farm) clone() *Farm {
	cp := *f
	cp.Crops = make([]*crops.Crop, len(f.Crops))
	for i, c := range f.Crops {
		cp.Crops[i] = c.Clone()
	}
	return &cp
}

// State is everything that carries over from one day to the next.
type State struct {
	Date       time.Time               `json:"date"` // Last simulated day; zero before the first
	Days       int                     `json:"days"`
	Farms      []*Farm                 `json:"farms"`
	Battery    energy.State            `json:"battery"`
	Extraction water.Extraction        `json:"extraction"`
	Ledger     *storage.Ledger         `json:"-"`
	Debt       accounting.DebtSchedule `json:"debt"`
}

// Clone returns a deep copy. Step never mutates the state it is given.
func (st *State) Clone() *State {
	cp := *st
	cp.Farms = make([]*Farm, len(st.Farms))
	for i, f := range st.Farms {
		cp.Farms[i] = f.clone()
	}
	cp.Ledger = st.Ledger.Clone()
	cp.Debt = st.Debt.Clone()
	return &cp
}

// Farm returns the farm with the given ID, or nil.
func (st *State) Farm(id string) *Farm {
	for _, f := range st.Farms {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// Event is a notable occurrence during a day.
type Event struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Category    string    `json:"category"` // "crop", "harvest", "market", "energy", "finance"
}

// DayRecords is everything one Step produced.
type DayRecords struct {
	Date      time.Time                  `json:"date"`
	Farms     []accounting.FarmRecord    `json:"farms"`
	Community accounting.CommunityRecord `json:"community"`
	Processed []storage.Processed        `json:"processed"`
	Sales     []storage.Sale             `json:"sales"`
	Events    []Event                    `json:"events"`
}
