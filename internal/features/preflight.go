package features

import (
	"fmt"
	"log"

	"github.com/syndtr/gocapability/capability"
	"golang.org/x/sys/unix"
)

// Preflight は uinput デバイスを作成できるかを事前に確認する
func Preflight(uinputPath string) error {
	writable := unix.Access(uinputPath, unix.W_OK) == nil
	return preflightResult(uinputPath, writable, hasDACOverride())
}

func hasDACOverride() bool {
	caps, err := capability.NewPid2(0)
	if err != nil {
		log.Printf("ケーパビリティを取得できません: %v", err)
		return false
	}
	if err := caps.Load(); err != nil {
		log.Printf("ケーパビリティを読み込めません: %v", err)
		return false
	}
	return caps.Get(capability.EFFECTIVE, capability.CAP_DAC_OVERRIDE)
}

func preflightResult(uinputPath string, writable, dacOverride bool) error {
	if writable {
		return nil
	}
	if dacOverride {
		log.Printf("%s への書き込み権限はありませんが CAP_DAC_OVERRIDE で続行します", uinputPath)
		return nil
	}
	return fmt.Errorf("%s に書き込めません。input グループに所属するか root で実行してください", uinputPath)
}
