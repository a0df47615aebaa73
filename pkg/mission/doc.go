// Package mission schedules mission activities against shared spacecraft
// resources. The Scheduler detects per-slot resource conflicts, proposes
// resolutions, predicts mission outcomes and runs a background loop that
// escalates the priority of activities with approaching deadlines.
package mission
