package domain

// State 定义了订单的生命周期状态
type State string

const (
	StateConfirmed     State = "CONFIRMED"      // 订单已确认，原料已扣减
	StateInPreparation State = "IN_PREPARATION" // 后厨制作中
	StateReady         State = "READY"          // 制作完成，等待取餐
	StateCompleted     State = "COMPLETED"      // 已取餐（终态）
	StateCanceled      State = "CANCELED"       // 已取消（终态）
)

// IsTerminal 判断状态是否为终态
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCanceled
}
