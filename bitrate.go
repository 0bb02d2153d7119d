package canport

import "sort"

var bitrateCommands = map[int]string{
	10000:   "S0",
	20000:   "S1",
	50000:   "S2",
	100000:  "S3",
	125000:  "S4",
	250000:  "S5",
	500000:  "S6",
	750000:  "S7",
	1000000: "S8",
}

// BitrateCommand returns the command that sets the CAN bus to rate bit/s.
func BitrateCommand(rate int) (string, error) {
	if cmd, ok := bitrateCommands[rate]; ok {
		return cmd, nil
	}
	return "", &UnsupportedRateError{Rate: rate}
}

// Bitrates lists the supported rates in ascending order.
func Bitrates() []int {
	out := make([]int, 0, len(bitrateCommands))
	for rate := range bitrateCommands {
		out = append(out, rate)
	}
	sort.Ints(out)
	return out
}
