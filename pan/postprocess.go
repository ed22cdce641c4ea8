package pan

import (
	"fmt"

	"go.uber.org/zap"

	proto "github.com/ystepanoff/uwbpan/protocol"
	"github.com/ystepanoff/uwbpan/sched"
)

// defaultPostprocess emits the diagnostic record for the last claimed frame.
// The PAN master replaces it with a hook that tracks long addresses and hands
// out PANIDs and slots.
func defaultPostprocess(p *Instance) {
	rx := p.LastReceived()
	f := rx.Frame
	utime := zap.Uint64("utime", sched.Uptime())
	uuid := zap.String("UUID", proto.UUID(f.LongAddress))

	switch {
	case p.Valid() && f.LongAddress == p.LongAddress():
		p.log.Info("pan: allocated", utime, uuid,
			zap.String("ID", hex16(f.ShortAddress)),
			zap.String("PANID", hex16(f.PANID)),
			zap.Uint16("slot", f.SlotID),
		)
	case rx.Kind == proto.KindBlink:
		p.log.Info("pan: blink", utime, uuid, zap.Uint8("seq_num", f.SeqNum))
	case rx.Kind == proto.KindResponse:
		p.log.Info("pan: response", utime, uuid,
			zap.String("ID", hex16(f.ShortAddress)),
			zap.String("PANID", hex16(f.PANID)),
			zap.Uint16("slot", f.SlotID),
		)
	}
}

func hex16(v uint16) string { return fmt.Sprintf("%X", v) }
