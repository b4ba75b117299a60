package xerrors

var (
	// ErrMalformedDate 日期文本无法解析为合法的公历日期。
	ErrMalformedDate = New(ErrInvalidArg, 400101, "malformed date", "expected dd-mm-yyyy", nil)
	// ErrUnknownConvention 日计数约定不在支持的集合内。
	ErrUnknownConvention = New(ErrInvalidArg, 400102, "unknown day count convention", "supported: ACT/360, ACT/365F, 30/360 US, 30/360 EU, ACT/ACT ISDA", nil)

	// ErrInvalidParameter 合约参数校验失败的公共父错误。
	ErrInvalidParameter = New(ErrInvalidArg, 400200, "invalid financial parameter", "", nil)
	// ErrSpotNotPositive 标的初始价格必须为正。
	ErrSpotNotPositive = New(ErrInvalidArg, 400201, "S0 must be positive", "", ErrInvalidParameter)
	// ErrVolatilityNotPositive 波动率必须为正。
	ErrVolatilityNotPositive = New(ErrInvalidArg, 400202, "volatility must be positive", "", ErrInvalidParameter)
	// ErrUnknownOptionKind 期权类型只能为 'c' 或 'p'。
	ErrUnknownOptionKind = New(ErrInvalidArg, 400203, "option type can only be 'c' (call) or 'p' (put)", "", ErrInvalidParameter)
	// ErrNegativeRate 模型只接受非负利率。
	ErrNegativeRate = New(ErrInvalidArg, 400204, "interest rate must be non-negative", "", ErrInvalidParameter)
	// ErrMaturityBeforeValue 到期日早于估值日。
	ErrMaturityBeforeValue = New(ErrInvalidArg, 400205, "maturity date is before value date", "", ErrInvalidParameter)
	// ErrStepTooSmall 差分步长低于下限。
	ErrStepTooSmall = New(ErrInvalidArg, 400206, "h must be at least 0.005", "", ErrInvalidParameter)
	// ErrStepTooLarge 差分步长过大，路径数会小于 1。
	ErrStepTooLarge = New(ErrInvalidArg, 400207, "h must be smaller than 1", "", ErrInvalidParameter)

	// ErrInvalidPriceArgument 定价调用的数值参数越界。
	ErrInvalidPriceArgument = New(ErrInvalidArg, 400301, "invalid pricing argument", "", nil)
	// ErrInvalidPathCount 路径数必须为正。
	ErrInvalidPathCount = New(ErrInvalidArg, 400302, "path count must be positive", "", nil)
	// ErrInvalidGraphStep 作图步长必须为正。
	ErrInvalidGraphStep = New(ErrInvalidArg, 400303, "graph step must be positive", "", nil)
	// ErrTooManyPaths 路径数超过引擎上限。
	ErrTooManyPaths = New(ErrInvalidArg, 400305, "path count exceeds limit", "", ErrInvalidPathCount)
	// ErrTooManyGraphPoints 作图步长过小，采样点数超过上限。
	ErrTooManyGraphPoints = New(ErrInvalidArg, 400306, "graph step yields too many points", "", ErrInvalidGraphStep)
	// ErrAnalyticDomain 解析解要求 r > 0 且 T > 0。
	ErrAnalyticDomain = New(ErrInvalidArg, 400304, "closed form requires positive rate and maturity", "", nil)

	// ErrUnknownHandle 句柄不存在或已销毁。
	ErrUnknownHandle = New(ErrNotFound, 404101, "unknown pricer handle", "", nil)
	// ErrSimulationPanic 模拟任务发生 panic。
	ErrSimulationPanic = New(ErrInternal, 500101, "simulation task panicked", "", nil)
)
