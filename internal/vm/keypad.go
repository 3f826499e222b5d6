package vm

// Key is a logical key on the hexadecimal keypad:
//
//	| 1 | 2 | 3 | C |
//	| 4 | 5 | 6 | D |
//	| 7 | 8 | 9 | E |
//	| A | 0 | B | F |
type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// Keypad holds the pressed state of every key, indexed by Key.
type Keypad [KeyCount]bool

func (k *Keypad) Press(key Key) {
	k[key&0x0F] = true
}

func (k *Keypad) Release(key Key) {
	k[key&0x0F] = false
}

func (k Keypad) Pressed(key Key) bool {
	return k[key&0x0F]
}
