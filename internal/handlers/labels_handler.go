package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/vet-agenda/internal/domain/agenda"
	"github.com/BruksfildServices01/vet-agenda/internal/httpresp"
)

type statusLabel struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
	Final bool   `json:"final"`
}

type label struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

type labelsResponse struct {
	Statuses []statusLabel `json:"statuses"`
	Species  []label       `json:"species"`
	Weekdays []label       `json:"weekdays"`
}

// Labels lists every display label the agenda uses, so the UI never keeps its
// own copy of the enumerations.
func Labels(c *gin.Context) {
	resp := labelsResponse{}

	for _, st := range agenda.Statuses() {
		resp.Statuses = append(resp.Statuses, statusLabel{
			Value: string(st),
			Label: st.Label(),
			Color: st.Color(),
			Icon:  st.Icon(),
			Final: st.IsFinal(),
		})
	}
	for _, sp := range agenda.SpeciesList() {
		resp.Species = append(resp.Species, label{Value: string(sp), Label: sp.Label()})
	}
	for d := agenda.Weekday(0); d < agenda.DaysPerWeek; d++ {
		resp.Weekdays = append(resp.Weekdays, label{Value: int(d), Label: d.Label()})
	}

	httpresp.OK(c, resp)
}
