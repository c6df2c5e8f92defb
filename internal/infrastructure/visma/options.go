package visma

import "time"

type Option func(*Adapter)

func SubmitDelay(delay time.Duration) Option {
	return func(a *Adapter) {
		a.submitDelay = delay
	}
}
