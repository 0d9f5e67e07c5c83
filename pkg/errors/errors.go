// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// scikit-learnの警告・例外システムにインスパイアされており、構造化されたエラー情報と
// エラー種別(Kind)による分類を提供します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("treeml-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// UsageWarningなどのカスタム警告の処理方法を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが利用可能な場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	エラー種別
//
// ===========================================================================

// Kind classifies a failure so callers can react without matching on types.
type Kind int

const (
	// KindUnknown is any error not produced by this module.
	KindUnknown Kind = iota
	// KindInvalidInput covers shape mismatches and out-of-range parameters.
	KindInvalidInput
	// KindInvalidPointer is a missing buffer or estimator.
	KindInvalidPointer
	// KindOutOfDate means the model is untrained or its data is stale.
	KindOutOfDate
	// KindMemory is an allocation that could not be satisfied.
	KindMemory
	// KindUsage is a recoverable, warning-class misuse.
	KindUsage
	// KindInternal is a recovered panic.
	KindInternal
)

var kindNames = map[Kind]string{
	KindUnknown:        "unknown",
	KindInvalidInput:   "invalid_input",
	KindInvalidPointer: "invalid_pointer",
	KindOutOfDate:      "out_of_date",
	KindMemory:         "memory",
	KindUsage:          "usage",
	KindInternal:       "internal",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsWarning reports whether errors of this kind are warning-class.
func (k Kind) IsWarning() bool {
	return k == KindUsage
}

type kinded interface {
	ErrorKind() Kind
}

// KindOf returns the Kind of the first structured error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindUnknown
}

// ===========================================================================
//
//	scikit-learn互換の警告型
//
// ===========================================================================

// UsageWarning は呼び出し順序や設定の誤用を示す回復可能な警告です。
// 例えば、確率追跡を無効にして学習したモデルに確率を問い合わせた場合など。
type UsageWarning struct {
	Op      string
	Message string
}

func (w *UsageWarning) Error() string {
	return fmt.Sprintf("treeml: %s: %s", w.Op, w.Message)
}

// ErrorKind implements the kind classification.
func (w *UsageWarning) ErrorKind() Kind { return KindUsage }

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *UsageWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("operation", w.Op).
		Str("message", w.Message).
		Str("type", "UsageWarning")
}

// NewUsageWarning は新しいUsageWarningを作成し、スタックトレースを付与します。
func NewUsageWarning(op, message string) error {
	return errors.WithStack(&UsageWarning{Op: op, Message: message})
}

// DataConversionWarning はデータの型が暗黙的に変換された場合に発生する警告です。
type DataConversionWarning struct {
	FromType string
	ToType   string
	Reason   string
}

func (w *DataConversionWarning) Error() string {
	return fmt.Sprintf("data converted from %s to %s. Reason: %s", w.FromType, w.ToType, w.Reason)
}

// ErrorKind implements the kind classification.
func (w *DataConversionWarning) ErrorKind() Kind { return KindUsage }

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("from_type", w.FromType).
		Str("to_type", w.ToType).
		Str("reason", w.Reason).
		Str("type", "DataConversionWarning")
}

// NewDataConversionWarning は新しいDataConversionWarningを作成します。
func NewDataConversionWarning(from, to, reason string) *DataConversionWarning {
	return &DataConversionWarning{FromType: from, ToType: to, Reason: reason}
}

// UndefinedMetricWarning は評価指標が計算できない場合に発生する警告です。
// 例えば、空の入力に対して正解率を計算しようとした場合など。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // この条件で返される値
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// ErrorKind implements the kind classification.
func (w *UndefinedMetricWarning) ErrorKind() Kind { return KindUsage }

// NewUndefinedMetricWarning は新しいUndefinedMetricWarningを作成します。
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` などを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("treeml: %s: the model has not yet been trained or the data it is associated with is out of date. Call Fit() before using %s()", e.ModelName, e.Method)
}

// ErrorKind implements the kind classification.
func (e *NotFittedError) ErrorKind() Kind { return KindOutOfDate }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	if e.Axis == 1 {
		return fmt.Sprintf("treeml: %s: n_features = %d doesn't match the expected value %d", e.Op, e.Got, e.Expected)
	}
	return fmt.Sprintf("treeml: %s: dimension mismatch on axis 0 (rows). Expected %d, got %d", e.Op, e.Expected, e.Got)
}

// ErrorKind implements the kind classification.
func (e *DimensionError) ErrorKind() Kind { return KindInvalidInput }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("treeml: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// ErrorKind implements the kind classification.
func (e *ValidationError) ErrorKind() Kind { return KindInvalidInput }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("treeml: %s: %s", e.Op, e.Message)
}

// ErrorKind implements the kind classification.
func (e *ValueError) ErrorKind() Kind { return KindInvalidInput }

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// PointerError は必須のバッファや推定器が与えられなかった場合のエラーです。
type PointerError struct {
	Op   string
	Name string
}

func (e *PointerError) Error() string {
	return fmt.Sprintf("treeml: %s: invalid pointer: %s is nil", e.Op, e.Name)
}

// ErrorKind implements the kind classification.
func (e *PointerError) ErrorKind() Kind { return KindInvalidPointer }

// NewPointerError は新しいPointerErrorを作成し、スタックトレースを付与します。
func NewPointerError(op, name string) error {
	return errors.WithStack(&PointerError{Op: op, Name: name})
}

// MemoryError は木の成長や作業領域の確保に失敗した場合のエラーです。
type MemoryError struct {
	Op        string
	Requested int
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("treeml: %s: unable to allocate storage for %d elements", e.Op, e.Requested)
}

// ErrorKind implements the kind classification.
func (e *MemoryError) ErrorKind() Kind { return KindMemory }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MemoryError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("requested", e.Requested).
		Str("type", "MemoryError")
}

// NewMemoryError は新しいMemoryErrorを作成し、スタックトレースを付与します。
func NewMemoryError(op string, requested int) error {
	return errors.WithStack(&MemoryError{Op: op, Requested: requested})
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("treeml: %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("treeml: %s: %s", e.Op, e.Reason)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, reason string, err error) error {
	modelErr := &ModelError{Op: op, Reason: reason, Err: err}
	return errors.WithStack(modelErr)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}
