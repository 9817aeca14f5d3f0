package iss

import "math/bits"

// RV32M execute handlers. The division stall formulas model the iterative
// divider: clz(|divisor|)+3 cycles for a positive divisor, clz(~d+1)+2
// for a negative one, and a single cycle for zero.

func mulExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, c.Regfile.Get(i.Rs1)*c.Regfile.Get(i.Rs2))
	return i.Next
}

func mulhExec(c *Core, i *DecodedInsn) *DecodedInsn {
	p := int64(int32(c.Regfile.Get(i.Rs1))) * int64(int32(c.Regfile.Get(i.Rs2)))
	c.Regfile.Set(i.Rd, uint32(uint64(p)>>32))
	return i.Next
}

func mulhsuExec(c *Core, i *DecodedInsn) *DecodedInsn {
	p := int64(int32(c.Regfile.Get(i.Rs1))) * int64(c.Regfile.Get(i.Rs2))
	c.Regfile.Set(i.Rd, uint32(uint64(p)>>32))
	return i.Next
}

func mulhuExec(c *Core, i *DecodedInsn) *DecodedInsn {
	p := uint64(c.Regfile.Get(i.Rs1)) * uint64(c.Regfile.Get(i.Rs2))
	c.Regfile.Set(i.Rd, uint32(p>>32))
	return i.Next
}

// divStallCycles returns the stall cost of a signed division.
func divStallCycles(divisor int32) int64 {
	switch {
	case divisor == 0:
		return 1
	case divisor > 0:
		return int64(bits.LeadingZeros32(uint32(divisor))) + 3
	default:
		return int64(bits.LeadingZeros32(uint32(^divisor)+1)) + 2
	}
}

// divuStallCycles returns the stall cost of an unsigned division. A zero
// divisor resolves in a single cycle.
func divuStallCycles(divisor uint32) int64 {
	if divisor == 0 {
		return 1
	}
	return int64(bits.LeadingZeros32(divisor)) + 3
}

func divExec(c *Core, i *DecodedInsn) *DecodedInsn {
	dividend := int32(c.Regfile.Get(i.Rs1))
	divisor := int32(c.Regfile.Get(i.Rs2))

	var result int32
	switch {
	case divisor == 0:
		result = -1
	case dividend == -1<<31 && divisor == -1:
		result = -1 << 31
	default:
		result = dividend / divisor
	}
	c.Regfile.Set(i.Rd, uint32(result))

	c.Timing.StallInsnDependencyAccount(divStallCycles(divisor))
	return i.Next
}

func divuExec(c *Core, i *DecodedInsn) *DecodedInsn {
	dividend := c.Regfile.Get(i.Rs1)
	divisor := c.Regfile.Get(i.Rs2)

	result := ^uint32(0)
	if divisor != 0 {
		result = dividend / divisor
	}
	c.Regfile.Set(i.Rd, result)

	c.Timing.StallInsnDependencyAccount(divuStallCycles(divisor))
	return i.Next
}

func remExec(c *Core, i *DecodedInsn) *DecodedInsn {
	dividend := int32(c.Regfile.Get(i.Rs1))
	divisor := int32(c.Regfile.Get(i.Rs2))

	var result int32
	switch {
	case divisor == 0:
		result = dividend
	case dividend == -1<<31 && divisor == -1:
		result = 0
	default:
		result = dividend % divisor
	}
	c.Regfile.Set(i.Rd, uint32(result))

	c.Timing.StallInsnDependencyAccount(divStallCycles(divisor))
	return i.Next
}

func remuExec(c *Core, i *DecodedInsn) *DecodedInsn {
	dividend := c.Regfile.Get(i.Rs1)
	divisor := c.Regfile.Get(i.Rs2)

	result := dividend
	if divisor != 0 {
		result = dividend % divisor
	}
	c.Regfile.Set(i.Rd, result)

	c.Timing.StallInsnDependencyAccount(divuStallCycles(divisor))
	return i.Next
}
