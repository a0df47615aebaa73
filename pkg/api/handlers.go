package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/odin/pkg/mission"
	"github.com/cuemby/odin/pkg/power"
	"github.com/cuemby/odin/pkg/thermal"
	"github.com/cuemby/odin/pkg/types"
	"github.com/gofiber/fiber/v2"
)

const maxHorizon = 7 * 24 * time.Hour

// horizon parses the ?horizon= query parameter
func horizon(c *fiber.Ctx, def time.Duration) (time.Duration, error) {
	raw := c.Query("horizon")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 || d > maxHorizon {
		return 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid horizon %q", raw))
	}
	return d, nil
}

// httpError maps predictor sentinel errors onto status codes
func httpError(err error) error {
	switch {
	case errors.Is(err, thermal.ErrNotFound),
		errors.Is(err, power.ErrNotFound),
		errors.Is(err, mission.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, mission.ErrExists),
		errors.Is(err, mission.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, mission.ErrInvalidActivity),
		errors.Is(err, power.ErrUnknownTrigger):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

func badBody(err error) error {
	return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
}

// Thermal

func (s *Server) thermalStatus(c *fiber.Ctx) error {
	return c.JSON(s.engine.Thermal().Status())
}

func (s *Server) thermalForecast(c *fiber.Ctx) error {
	h, err := horizon(c, 2*time.Hour)
	if err != nil {
		return err
	}
	return c.JSON(s.engine.ThermalForecast(h))
}

// ThermalActionRequest asks for a thermal response to a trigger
type ThermalActionRequest struct {
	Trigger  thermal.Trigger `json:"trigger"`
	Severity float64         `json:"severity"`
	Affected []string        `json:"affected,omitempty"`
}

// ThermalActionResponse is the generated response and what executing it did
type ThermalActionResponse struct {
	Response thermal.Response          `json:"response"`
	Results  []thermal.ExecutionResult `json:"results"`
}

func (s *Server) thermalActions(c *fiber.Ctx) error {
	var req ThermalActionRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(err)
	}
	switch req.Trigger {
	case thermal.TriggerSolarFlare, thermal.TriggerComponentOverheat, thermal.TriggerDeepSpaceCooling:
	default:
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown thermal trigger %q", req.Trigger))
	}
	resp, results := s.engine.ExecuteThermalResponse(req.Trigger, req.Severity, req.Affected)
	return c.JSON(ThermalActionResponse{Response: resp, Results: results})
}

type temperatureRequest struct {
	Value float64 `json:"value"`
}

func (s *Server) updateTemperature(c *fiber.Ctx) error {
	var req temperatureRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(err)
	}
	if err := s.engine.Thermal().UpdateComponentTemperature(c.Params("id"), req.Value); err != nil {
		return httpError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Power

func (s *Server) powerStatus(c *fiber.Ctx) error {
	return c.JSON(s.engine.Power().Status())
}

func (s *Server) powerForecast(c *fiber.Ctx) error {
	h, err := horizon(c, 2*time.Hour)
	if err != nil {
		return err
	}
	return c.JSON(s.engine.PowerForecast(h))
}

// PowerActionRequest asks the power decision tree to act on a trigger
type PowerActionRequest struct {
	Trigger  power.Trigger `json:"trigger"`
	Severity float64       `json:"severity"`
}

func (s *Server) powerActions(c *fiber.Ctx) error {
	var req PowerActionRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(err)
	}
	action, ok := s.engine.ExecutePowerAction(req.Trigger, req.Severity)
	if !ok {
		return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("no action applied for trigger %q", req.Trigger))
	}
	return c.Status(fiber.StatusCreated).JSON(action)
}

func (s *Server) approvePowerAction(c *fiber.Ctx) error {
	if err := s.engine.ApprovePowerAction(c.Params("id")); err != nil {
		return httpError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) bankHealth(c *fiber.Ctx) error {
	h, err := s.engine.Power().AssessHealth(c.Params("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"bankId": c.Params("id"), "health": h})
}

func (s *Server) updateBank(c *fiber.Ctx) error {
	var update power.BatteryStateUpdate
	if err := c.BodyParser(&update); err != nil {
		return badBody(err)
	}
	if err := s.engine.Power().UpdateBatteryState(c.Params("id"), update); err != nil {
		return httpError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Schedule

func (s *Server) scheduleMetrics(c *fiber.Ctx) error {
	return c.JSON(s.engine.Mission().Metrics())
}

func (s *Server) schedulePrediction(c *fiber.Ctx) error {
	h, err := horizon(c, 24*time.Hour)
	if err != nil {
		return err
	}
	return c.JSON(s.engine.MissionPrediction(h))
}

func (s *Server) listConflicts(c *fiber.Ctx) error {
	return c.JSON(s.engine.Conflicts())
}

func (s *Server) resolveConflicts(c *fiber.Ctx) error {
	return c.JSON(s.engine.ResolveConflicts())
}

func (s *Server) listActivities(c *fiber.Ctx) error {
	return c.JSON(s.engine.Mission().Activities())
}

// addActivities accepts a single activity or a list
func (s *Server) addActivities(c *fiber.Ctx) error {
	var acts []*mission.Activity
	if err := c.BodyParser(&acts); err != nil {
		var one mission.Activity
		if err := c.BodyParser(&one); err != nil {
			return badBody(err)
		}
		acts = []*mission.Activity{&one}
	}

	added := make([]string, 0, len(acts))
	for _, a := range acts {
		if err := s.engine.AddActivity(a); err != nil {
			return httpError(err)
		}
		added = append(added, a.ID)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"added": added})
}

type transitionRequest struct {
	Status mission.Status `json:"status"`
}

func (s *Server) transitionActivity(c *fiber.Ctx) error {
	var req transitionRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(err)
	}
	if err := s.engine.TransitionActivity(c.Params("id"), req.Status); err != nil {
		return httpError(err)
	}
	a, err := s.engine.Mission().Activity(c.Params("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(a)
}

// Environment

func (s *Server) getEnvironment(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"environment": s.engine.Environment(),
		"health":      s.engine.Health(),
	})
}

func (s *Server) putEnvironment(c *fiber.Ctx) error {
	var env types.Environment
	if err := c.BodyParser(&env); err != nil {
		return badBody(err)
	}
	s.engine.SetEnvironment(env)
	return c.JSON(s.engine.Environment())
}
