package utils

import (
	"context"
	"strings"

	"github.com/edgexfoundry/app-functions-sdk-go/v3/pkg/interfaces/mocks"
	mocks3 "github.com/edgexfoundry/go-mod-bootstrap/v3/bootstrap/interfaces/mocks"
	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	twinErrors "skytwin/common/errors"
)

type TwinMockUtils struct {
	AppService         *mocks.ApplicationService
	AppSettings        map[string]string
	AppFunctionContext *mocks.AppFunctionContext
	SecretProvider     *mocks3.SecretProvider
}

// MQTTSettings are broker settings pointing at an unreachable host.
func MQTTSettings() map[string]string {
	return map[string]string{
		"scheme":       "tcp",
		"MqttServer":   "vm-loc-xxxx",
		"MqttPort":     "1883",
		"MqttAuthMode": "usernamepassword",
		"QoS":          "1",
	}
}

// NewApplicationServiceMock builds an app service mock. Settings whose value starts with "ERR:"
// are returned as errors; every other setting resolves to "".
func NewApplicationServiceMock(appSettings map[string]string) *TwinMockUtils {
	twinMockUtils := new(TwinMockUtils)
	lc := logger.NewMockClient()

	mockAppService := &mocks.ApplicationService{}
	twinMockUtils.AppService = mockAppService
	mockAppService.On("LoggingClient").Return(lc)
	mockAppService.On("AppContext").Return(context.Background())

	twinMockUtils.AppSettings = make(map[string]string)
	for k, v := range appSettings {
		twinMockUtils.AppSettings[k] = v
		if strings.HasPrefix(v, "ERR:") {
			e := errors.New(v)
			mockAppService.On("GetAppSetting", k).Return("", e)
			mockAppService.On("GetAppSettingStrings", k).Return([]string{}, e)
		} else {
			mockAppService.On("GetAppSetting", k).Return(v, nil)
			mockAppService.On("GetAppSettingStrings", k).Return(strings.Split(v, ","), nil)
		}
	}
	// catch-all expectations last, testify picks the first match
	mockAppService.On("GetAppSetting", mock.Anything).Return("", nil)
	mockAppService.On("GetAppSettingStrings", mock.Anything).Return([]string{}, nil)

	ctx := &mocks.AppFunctionContext{}
	ctx.On("LoggingClient").Return(lc)
	ctx.On("PipelineId").Return("erty-876trfv-dsdf")
	ctx.On("CorrelationID").Return("erty-876trfv-dsdf2")
	ctx.On("SetResponseData", mock.Anything).Return()
	ctx.On("SetResponseContentType", mock.Anything).Return()
	twinMockUtils.AppFunctionContext = ctx

	mockSecretProvider := &mocks3.SecretProvider{}
	mockSecretProvider.On("GetSecret", "redisdb", "username", "password").Return(map[string]string{"username": "username", "password": "password"}, nil)
	mockSecretProvider.On("GetSecret", "postgresdb", "username", "password").Return(map[string]string{"username": "twin", "password": "secret"}, nil)
	mockSecretProvider.On("GetSecret", "mbconnection", "username", "password").Return(map[string]string{"username": "mqttuser", "password": "mqttpass"}, nil)
	mockSecretProvider.On("GetSecret", "mbconnectionerror", "username", "password").Return(map[string]string{}, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeServerError, "mocked error"))
	twinMockUtils.SecretProvider = mockSecretProvider
	mockAppService.On("SecretProvider").Return(mockSecretProvider)

	return twinMockUtils
}
