package core

type AccountKind string

const (
	AccountKindDefault AccountKind = "default"
	AccountKindHLS     AccountKind = "high_levered_strategy"
)

func (k AccountKind) Valid() bool {
	switch k {
	case AccountKindDefault, AccountKindHLS:
		return true
	}
	return false
}

func (k AccountKind) String() string {
	return string(k)
}
