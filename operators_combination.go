// Combination operators for rxcore
// 组合操作符：合并和串联多个Observable
package rxcore

import "github.com/samber/lo"

func identity(value interface{}) Observable {
	return value.(Observable)
}

// Merge 同时订阅所有sources并按到达顺序合并输出，全部完成时完成
func Merge(sources ...Observable) Observable {
	return fromObservables(sources).FlatMap(identity)
}

// Concat 依次订阅sources，前一个完成后才订阅下一个
func Concat(sources ...Observable) Observable {
	return fromObservables(sources).ConcatMap(identity)
}

func fromObservables(sources []Observable) Observable {
	return FromSlice(lo.ToAnySlice(sources))
}

// MergeWith 与other合并
func (o *observableImpl) MergeWith(other Observable) Observable {
	return Merge(o, other)
}

// ConcatWith 在本序列完成后继续other
func (o *observableImpl) ConcatWith(other Observable) Observable {
	return Concat(o, other)
}

// StartWith 先发射values，再发射本序列
func (o *observableImpl) StartWith(values ...interface{}) Observable {
	return Concat(FromSlice(values), o)
}
