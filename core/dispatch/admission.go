package dispatch

import (
	"math"

	"github.com/kilianp07/dispatchsim/core/model"
)

// Threshold is the last tour position, counted in stops, where a new
// arrival may still be admitted onto a busy actor.
func Threshold(gamma float64, l int) int {
	return int(math.RoundToEven(gamma * float64(l)))
}

// Admit walks the proposed stops of a busy actor and refuses the replan if
// a waiting task sits beyond the gamma threshold. Idle actors are always
// admitted. pos is the offending 0-based stop index, -1 when admitted.
func Admit(a *model.Actor, stops []*model.Task, gamma float64) (ok bool, pos int) {
	if !a.Busy() {
		return true, -1
	}
	for i := Threshold(gamma, len(stops)); i < len(stops); i++ {
		if stops[i].State == model.TaskWaiting {
			return false, i
		}
	}
	return true, -1
}
