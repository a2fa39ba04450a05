package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrStorageUnavailable 持久层故障
// 区别于业务错误，调用方据此判断是否属于存储不可用
var ErrStorageUnavailable = errors.New("存储不可用")

// storageErr 把非业务性的 gorm 错误统一包装为存储故障
func storageErr(err error) error {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
